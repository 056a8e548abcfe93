package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/extract"
	"github.com/beardedgiant/pipewatch/internal/nav"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const separator = "────────────────────────────────────────────────────────────\n"

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusSuccess:
		return successStyle
	case domain.StatusFailed:
		return failedStyle
	case domain.StatusRunning:
		return runningStyle
	default:
		return pendingStyle
	}
}

func statusIcon(s domain.Status) string {
	switch s {
	case domain.StatusSuccess:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusRunning:
		return "●"
	case domain.StatusPending:
		return "↷"
	case domain.StatusCanceled:
		return "○"
	case domain.StatusSkipped:
		return "⏭"
	case domain.StatusManual:
		return "☰"
	default:
		return "?"
	}
}

// View renders the full TUI.
func (m AppModel) View() string {
	if m.engine.Terminated() {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(separator)

	switch m.engine.Current().(type) {
	case nav.PipelineList:
		b.WriteString(m.renderPipelines())
	case nav.JobList:
		b.WriteString(m.renderJobs())
	case nav.JobDetail:
		b.WriteString(m.logView.View())
		b.WriteString("\n")
	case nav.FailedJobs:
		b.WriteString(m.renderFailedJobs())
	}

	if notice := m.engine.Notice(); notice != nil {
		b.WriteString(noticeStyle.Render(fmt.Sprintf(" ! refresh failed: %v (showing last data)", notice)))
		b.WriteString("\n")
	}
	b.WriteString(separator)
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m AppModel) renderHeader() string {
	var title string
	switch v := m.engine.Current().(type) {
	case nav.PipelineList:
		title = "Pipelines"
		if !v.Filter.IsZero() {
			title += fmt.Sprintf("  [filter %s]", describeFilter(v.Filter))
		}
		if v.Sort != nav.SortDefault {
			title += fmt.Sprintf("  [sort %s]", v.Sort)
		}
	case nav.JobList:
		title = fmt.Sprintf("Jobs | pipeline #%d (%s)", v.Pipeline.ID, v.Pipeline.Status)
		if v.Filter.FailedOnly {
			title += "  [failed only]"
		}
		if v.Sort != nav.SortDefault {
			title += fmt.Sprintf("  [sort %s]", v.Sort)
		}
	case nav.JobDetail:
		job := m.engine.Job()
		title = fmt.Sprintf("Job #%d %s (%s)", job.ID, job.Name, job.Status)
	case nav.FailedJobs:
		title = fmt.Sprintf("Failed jobs | pipeline #%d", v.Pipeline.ID)
	}
	paused := ""
	if m.paused {
		paused = mutedStyle.Render("  [paused]")
	}
	return headerStyle.Render(" pipewatch | "+m.links.Project+" | "+title) + paused + "\n"
}

func (m AppModel) renderPipelines() string {
	rows := m.engine.VisiblePipelines()
	if len(rows) == 0 {
		return " No pipelines found.\n"
	}
	var b strings.Builder
	for i, p := range rows {
		prefix := "  "
		if i == m.cursor() {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s #%-9d %-25s %-12s %s %s",
			prefix,
			statusStyle(p.Status).Render(statusIcon(p.Status)),
			p.ID,
			truncate(p.Branch, 25),
			truncate(p.User, 12),
			shortSHA(p.CommitSHA),
			mutedStyle.Render(formatAge(p.CreatedAt)),
		)
		b.WriteString(line + "\n")
	}
	if m.filtering {
		b.WriteString("\n Filter: " + m.filter.View() + "\n")
	}
	return b.String()
}

func (m AppModel) renderJobs() string {
	rows := m.engine.VisibleJobs()
	if len(rows) == 0 {
		return " No jobs to show.\n"
	}
	var b strings.Builder
	lastStage := ""
	i := 0
	for _, j := range rows {
		if j.Stage != lastStage {
			b.WriteString(stageStyle.Render(" "+strings.ToUpper(j.Stage)) + "\n")
			lastStage = j.Stage
		}
		prefix := "  "
		if i == m.cursor() {
			prefix = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s %-9d %-35s %s\n",
			prefix,
			statusStyle(j.Status).Render(statusIcon(j.Status)),
			j.ID,
			truncate(j.Name, 35),
			formatDuration(j),
		))
		i++
	}
	if m.filtering {
		b.WriteString("\n Filter: " + m.filter.View() + "\n")
	}
	return b.String()
}

func (m AppModel) renderFailedJobs() string {
	rows := m.engine.VisibleJobs()
	if len(rows) == 0 {
		return " No failed jobs in this pipeline.\n"
	}
	summaries := make(map[int]extract.Summary)
	for _, s := range m.engine.Summaries() {
		summaries[s.JobID] = s
	}
	var b strings.Builder
	for i, j := range rows {
		prefix := "  "
		if i == m.cursor() {
			prefix = "> "
		}
		b.WriteString(failedStyle.Render(fmt.Sprintf("%sJob #%d: %s", prefix, j.ID, j.Name)))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  stage %s, %s", j.Stage, formatDuration(j))))
		b.WriteString("\n")
		b.WriteString(renderSummary(summaries[j.ID]))
	}
	return b.String()
}

func renderSummary(s extract.Summary) string {
	if len(s.Lines) == 0 {
		return mutedStyle.Render("      no failures extracted") + "\n"
	}
	var b strings.Builder
	for _, line := range s.Lines {
		text := line.Text
		if line.Count > 1 {
			text = fmt.Sprintf("%s (x%d)", text, line.Count)
		}
		b.WriteString("      • " + text + "\n")
	}
	return b.String()
}

// detailContent builds the scrollable body of the job detail view: the
// extracted failure summary first, then the full trace.
func (m AppModel) detailContent() string {
	var b strings.Builder
	for _, s := range m.engine.Summaries() {
		b.WriteString(failedStyle.Render(" FAILURE SUMMARY"))
		b.WriteString("\n")
		b.WriteString(renderSummary(s))
		b.WriteString(separator)
	}
	b.WriteString(m.engine.Log())
	return b.String()
}

func (m AppModel) renderFooter() string {
	var keys string
	switch m.engine.Current().(type) {
	case nav.PipelineList:
		keys = " ↑/↓ move   enter jobs   / filter   s sort   r refresh   p pause   b browser   q quit"
	case nav.JobList:
		keys = " ↑/↓ move   enter detail   f failed   / filter   s sort   r refresh   b browser   esc back"
	case nav.JobDetail:
		keys = " ↑/↓ scroll   r refresh   b browser   esc back"
	case nav.FailedJobs:
		keys = " ↑/↓ move   enter detail   r refresh   b browser   esc back"
	}
	return mutedStyle.Render(keys) + "\n"
}

func describeFilter(f nav.Filter) string {
	var parts []string
	if f.Branch != "" {
		parts = append(parts, f.Branch)
	}
	if f.User != "" {
		parts = append(parts, "@"+f.User)
	}
	if f.FailedOnly {
		parts = append(parts, "failed")
	}
	return strings.Join(parts, " ")
}

func formatDuration(j domain.Job) string {
	if !j.Finished() || j.Duration <= 0 {
		return "--"
	}
	d := j.Duration.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
