package tui

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/beardedgiant/pipewatch/internal/browser"
	"github.com/beardedgiant/pipewatch/internal/cache"
	"github.com/beardedgiant/pipewatch/internal/nav"
	"github.com/beardedgiant/pipewatch/internal/refresh"
	"github.com/beardedgiant/pipewatch/internal/source"
)

// FetchDoneMsg is sent when a fetch for a view has completed. Exported so
// tests can inject results directly into AppModel.Update.
type FetchDoneMsg struct {
	Result nav.FetchResult
}

// refreshIntentMsg is sent when the coordinator asks for an auto-refresh.
type refreshIntentMsg struct{}

// AppModel is the root Bubbletea model for the pipewatch monitor.
type AppModel struct {
	engine *nav.Engine
	coord  *refresh.Coordinator
	src    *source.Source
	cached *cache.Reader // may be nil; used for explicit invalidation
	links  browser.Links
	log    *slog.Logger

	cursors  []int // one cursor per stack level
	inflight int
	paused   bool

	filtering bool
	filter    textinput.Model

	logView viewport.Model

	width  int
	height int
}

// NewAppModel creates the root application model positioned at the pipeline
// list. cached may be nil when running without the response cache decorator.
func NewAppModel(src *source.Source, coord *refresh.Coordinator, cached *cache.Reader, links browser.Links, log *slog.Logger) AppModel {
	ti := textinput.New()
	ti.Placeholder = "branch or @user"
	ti.CharLimit = 80
	return AppModel{
		engine:  nav.NewEngine(),
		coord:   coord,
		src:     src,
		cached:  cached,
		links:   links,
		log:     log,
		cursors: []int{0},
		filter:  ti,
		logView: viewport.New(80, 20),
	}
}

// Init triggers the initial pipeline load and starts listening for
// auto-refresh intents.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCurrent(), m.waitForIntent())
}

// fetchCurrent produces a command that loads the data for the current view.
// The coordinator is told a fetch is in flight so ticks hold off until it
// completes.
func (m AppModel) fetchCurrent() tea.Cmd {
	req := m.engine.Refresh()
	m.coord.FetchStarted()
	src := m.src
	return func() tea.Msg {
		return FetchDoneMsg{Result: src.Execute(req)}
	}
}

// waitForIntent blocks on the coordinator's intent channel and turns the
// next tick into a message. Re-armed after every delivery.
func (m AppModel) waitForIntent() tea.Cmd {
	intents := m.coord.Intents()
	return func() tea.Msg {
		<-intents
		return refreshIntentMsg{}
	}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width
		m.logView.Height = maxInt(msg.Height-6, 5)
		return m, nil

	case refreshIntentMsg:
		if m.inflight > 0 || m.engine.Terminated() {
			return m, m.waitForIntent()
		}
		m.inflight++
		return m, tea.Batch(m.fetchCurrent(), m.waitForIntent())

	case FetchDoneMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		m.coord.FetchDone()
		applied := m.engine.Apply(msg.Result)
		if !applied {
			m.log.Debug("stale fetch result discarded",
				"view", fmt.Sprint(msg.Result.View), "token", msg.Result.Token)
			return m, nil
		}
		if msg.Result.Err != nil {
			m.log.Warn("refresh failed", "err", msg.Result.Err)
		}
		m.clampCursor()
		if _, ok := m.engine.Current().(nav.JobDetail); ok {
			m.logView.SetContent(m.detailContent())
		}
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilterInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.coord.Stop()
		return m, tea.Quit

	case "q", "esc":
		return m.goBack()

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "enter":
		return m.drillIn()

	case "f":
		if _, ok := m.engine.Current().(nav.JobList); ok {
			if _, err := m.engine.ShowFailedJobs(); err == nil {
				m.pushCursor()
				m.inflight++
				return m, m.fetchCurrent()
			}
			return m, nil
		}
		return m.startFiltering()

	case "/":
		return m.startFiltering()

	case "s":
		m.cycleSort()
		return m, nil

	case "r":
		return m.manualRefresh()

	case "p":
		if m.paused {
			m.coord.Resume()
		} else {
			m.coord.Pause()
		}
		m.paused = !m.paused
		return m, nil

	case "b":
		m.openBrowser()
		return m, nil
	}

	// Scroll keys fall through to the log viewport on the detail view.
	if _, ok := m.engine.Current().(nav.JobDetail); ok {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m AppModel) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.engine.ApplyFilter(parseFilter(m.filter.Value()))
		m.clampCursor()
		return m, nil
	case "esc":
		m.filtering = false
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m AppModel) goBack() (tea.Model, tea.Cmd) {
	_, ok := m.engine.GoBack()
	if !ok {
		m.coord.Stop()
		return m, tea.Quit
	}
	m.popCursor()
	return m, nil
}

func (m AppModel) drillIn() (tea.Model, tea.Cmd) {
	if _, err := m.engine.DrillInto(m.cursor()); err != nil {
		return m, nil
	}
	m.pushCursor()
	m.inflight++
	return m, m.fetchCurrent()
}

func (m AppModel) startFiltering() (tea.Model, tea.Cmd) {
	switch m.engine.Current().(type) {
	case nav.PipelineList, nav.JobList:
		m.filtering = true
		m.filter.SetValue("")
		m.filter.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m AppModel) cycleSort() {
	var cur nav.SortKey
	switch v := m.engine.Current().(type) {
	case nav.PipelineList:
		cur = v.Sort
	case nav.JobList:
		cur = v.Sort
	default:
		return
	}
	m.engine.ApplySort((cur + 1) % 4)
}

// manualRefresh re-fetches the current view immediately and resets the
// auto-refresh timer. A still-running parent pipeline gets its cached job
// list dropped in case the cache picked up a stale terminal snapshot.
func (m AppModel) manualRefresh() (tea.Model, tea.Cmd) {
	if m.inflight > 0 {
		return m, nil
	}
	if m.cached != nil {
		switch v := m.engine.Current().(type) {
		case nav.JobList:
			if !v.Pipeline.Status.Terminal() {
				m.cached.InvalidatePipeline(v.Pipeline.ID)
			}
		case nav.FailedJobs:
			if !v.Pipeline.Status.Terminal() {
				m.cached.InvalidatePipeline(v.Pipeline.ID)
			}
		}
	}
	m.coord.ManualRefresh()
	m.inflight++
	return m, m.fetchCurrent()
}

func (m *AppModel) openBrowser() {
	var url string
	switch m.engine.Current().(type) {
	case nav.PipelineList:
		rows := m.engine.VisiblePipelines()
		if c := m.cursor(); c < len(rows) {
			url = m.links.Pipeline(rows[c].ID)
		}
	case nav.JobList, nav.FailedJobs:
		rows := m.engine.VisibleJobs()
		if c := m.cursor(); c < len(rows) {
			url = m.links.Job(rows[c].ID)
		}
	case nav.JobDetail:
		url = m.links.Job(m.engine.Job().ID)
	}
	if url == "" {
		return
	}
	if err := browser.Open(url); err != nil {
		m.log.Warn("browser open failed", "url", url, "err", err)
	}
}

func (m *AppModel) cursor() int {
	return m.cursors[len(m.cursors)-1]
}

func (m *AppModel) moveCursor(delta int) {
	n := m.rowCount()
	c := m.cursor() + delta
	if c < 0 {
		c = 0
	}
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursors[len(m.cursors)-1] = c
}

func (m *AppModel) clampCursor() {
	if n := m.rowCount(); m.cursor() >= n {
		m.cursors[len(m.cursors)-1] = maxInt(n-1, 0)
	}
}

func (m *AppModel) pushCursor() {
	m.cursors = append(m.cursors, 0)
}

func (m *AppModel) popCursor() {
	if len(m.cursors) > 1 {
		m.cursors = m.cursors[:len(m.cursors)-1]
	}
}

func (m *AppModel) rowCount() int {
	switch m.engine.Current().(type) {
	case nav.PipelineList:
		return len(m.engine.VisiblePipelines())
	case nav.JobList, nav.FailedJobs:
		return len(m.engine.VisibleJobs())
	}
	return 0
}

// parseFilter turns the filter input text into a Filter: tokens starting
// with '@' match the triggering user, everything else matches the branch.
func parseFilter(text string) nav.Filter {
	var f nav.Filter
	for _, tok := range strings.Fields(text) {
		if strings.HasPrefix(tok, "@") {
			f.User = strings.TrimPrefix(tok, "@")
		} else {
			f.Branch = tok
		}
	}
	return f
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run starts the Bubbletea program. Exits the process on error.
func Run(src *source.Source, coord *refresh.Coordinator, cached *cache.Reader, links browser.Links, log *slog.Logger) {
	coord.Start()
	defer coord.Stop()
	p := tea.NewProgram(NewAppModel(src, coord, cached, links, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipewatch error: %v\n", err)
		os.Exit(1)
	}
}
