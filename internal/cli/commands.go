// Package cli renders the one-shot commands: each maps to a single fetch
// and a table on stdout, with no persistent navigation stack.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/beardedgiant/pipewatch/internal/browser"
	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/extract"
	"github.com/beardedgiant/pipewatch/internal/nav"
)

var (
	greenText  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	redText    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellowText = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	blueText   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	dimText    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// App executes one-shot commands against a reader.
type App struct {
	Reader domain.Reader
	Links  browser.Links
	Out    io.Writer
	Log    *slog.Logger
}

func colorStatus(s domain.Status) string {
	text := string(s)
	switch s {
	case domain.StatusSuccess:
		return greenText.Render(text)
	case domain.StatusFailed:
		return redText.Render(text)
	case domain.StatusRunning:
		return yellowText.Render(text)
	default:
		return dimText.Render(text)
	}
}

// BranchMRs lists merge requests whose source branch is branch.
func (a *App) BranchMRs(branch, state string, latest bool) error {
	mrs, err := a.Reader.ListMergeRequests(branch, state)
	if err != nil {
		return err
	}
	if len(mrs) == 0 {
		fmt.Fprintf(a.Out, "No %s MRs found for branch %q\n", state, branch)
		return nil
	}
	fmt.Fprintf(a.Out, "Merge requests for branch %q (state: %s):\n", branch, state)
	fmt.Fprintf(a.Out, "%-8s %-10s %-14s %-50s %-15s %s\n", "MR", "State", "Pipeline", "Title", "Author", "Target")
	for _, mr := range mrs {
		pipeline := "no pipeline"
		if mr.HeadPipelineID != 0 {
			pipeline = fmt.Sprintf("%s #%d", colorStatus(mr.HeadPipelineStatus), mr.HeadPipelineID)
		}
		fmt.Fprintf(a.Out, "!%-7d %-10s %-14s %-50s %-15s %s\n",
			mr.IID, colorMRState(mr.State), pipeline, truncate(mr.Title, 50), mr.Author, mr.TargetBranch)
	}
	if latest {
		mr := mrs[0]
		fmt.Fprintf(a.Out, "\nLatest MR: !%d (%s)\n", mr.IID, a.Links.MergeRequest(mr.IID))
		if mr.HeadPipelineID != 0 {
			fmt.Fprintf(a.Out, "Latest pipeline: %d (status: %s)\n", mr.HeadPipelineID, mr.HeadPipelineStatus)
		}
	}
	return nil
}

func colorMRState(state string) string {
	switch state {
	case "opened":
		return greenText.Render(state)
	case "merged":
		return blueText.Render(state)
	case "closed":
		return redText.Render(state)
	}
	return state
}

// MRPipelines lists the pipelines of a merge request, newest first.
func (a *App) MRPipelines(iid int, latest bool) error {
	pipelines, err := a.Reader.ListMergeRequestPipelines(iid)
	if err != nil {
		return err
	}
	if len(pipelines) == 0 {
		fmt.Fprintf(a.Out, "No pipelines found for MR !%d\n", iid)
		return nil
	}
	fmt.Fprintf(a.Out, "Pipelines for MR !%d:\n", iid)
	fmt.Fprintf(a.Out, "%-10s %-12s %-30s %-10s %s\n", "ID", "Status", "Ref", "SHA", "Created")
	for _, p := range pipelines {
		fmt.Fprintf(a.Out, "%-10d %-12s %-30s %-10s %s\n",
			p.ID, colorStatus(p.Status), truncate(p.Branch, 30), shortSHA(p.CommitSHA),
			p.CreatedAt.Format("2006-01-02 15:04"))
	}
	if latest {
		fmt.Fprintf(a.Out, "\nLatest pipeline: %d\n", pipelines[0].ID)
	}
	return nil
}

// PipelineStatus prints the job status summary of a pipeline; detailed adds
// a stage-by-stage breakdown of every job.
func (a *App) PipelineStatus(pipelineID int, detailed bool) error {
	pipeline, err := a.Reader.GetPipeline(pipelineID)
	if err != nil {
		return err
	}
	jobs, err := a.Reader.ListJobs(pipeline)
	if err != nil {
		return err
	}
	s := summarize(jobs)

	fmt.Fprintf(a.Out, "Pipeline %d: %s\n", pipelineID, colorStatus(pipeline.Status))
	fmt.Fprintf(a.Out, "Progress: [%s] %d/%d (%d%%)\n",
		progressBar(s.completed, s.total, 40), s.completed, s.total, s.percentage())

	if detailed {
		a.printStages(jobs)
		return nil
	}

	fmt.Fprintf(a.Out, "Total jobs: %d\n", s.total)
	for _, st := range []domain.Status{
		domain.StatusSuccess, domain.StatusFailed, domain.StatusRunning,
		domain.StatusPending, domain.StatusSkipped, domain.StatusCanceled, domain.StatusManual,
	} {
		fmt.Fprintf(a.Out, "  %-10s %d\n", st, s.counts[st])
	}
	if len(s.failedJobs) > 0 {
		fmt.Fprintf(a.Out, "\nFailed jobs:\n")
		fmt.Fprintf(a.Out, "%-12s %-15s %-40s %s\n", "ID", "Stage", "Name", "Duration")
		for _, j := range s.failedJobs {
			fmt.Fprintf(a.Out, "%-12d %-15s %-40s %s\n", j.ID, j.Stage, truncate(j.Name, 40), formatDuration(j))
		}
	}
	return nil
}

func (a *App) printStages(jobs []domain.Job) {
	for _, stage := range nav.StageOrder(jobs) {
		stageJobs := make([]domain.Job, 0)
		for _, j := range jobs {
			if j.Stage == stage {
				stageJobs = append(stageJobs, j)
			}
		}
		done := 0
		for _, j := range stageJobs {
			if j.Status.Terminal() {
				done++
			}
		}
		fmt.Fprintf(a.Out, "\nStage %s [%d/%d]\n", stage, done, len(stageJobs))
		for _, j := range nav.SortJobs(stageJobs, nav.SortName) {
			fmt.Fprintf(a.Out, "  %-10s %-12d %-45s %s\n", colorStatus(j.Status), j.ID, truncate(j.Name, 45), formatDuration(j))
		}
	}
}

// PipelineJobs lists the jobs of a pipeline with optional filtering and
// sorting, rows grouped by stage precedence.
func (a *App) PipelineJobs(pipelineID int, status, stage, sortKey string) error {
	pipeline, err := a.Reader.GetPipeline(pipelineID)
	if err != nil {
		return err
	}
	jobs, err := a.Reader.ListJobs(pipeline)
	if err != nil {
		return err
	}

	filtered := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if status != "" && string(j.Status) != status {
			continue
		}
		if stage != "" && j.Stage != stage {
			continue
		}
		filtered = append(filtered, j)
	}
	sorted := nav.SortJobs(filtered, parseSortKey(sortKey))

	fmt.Fprintf(a.Out, "Jobs in pipeline %d:\n", pipelineID)
	fmt.Fprintf(a.Out, "%-12s %-10s %-15s %-40s %-10s %s\n", "ID", "Status", "Stage", "Name", "Duration", "Finished")
	for _, j := range sorted {
		finished := ""
		if !j.FinishedAt.IsZero() {
			finished = j.FinishedAt.Format("15:04:05")
		}
		fmt.Fprintf(a.Out, "%-12d %-10s %-15s %-40s %-10s %s\n",
			j.ID, colorStatus(j.Status), j.Stage, truncate(j.Name, 40), formatDuration(j), finished)
	}
	return nil
}

func parseSortKey(s string) nav.SortKey {
	switch s {
	case "duration":
		return nav.SortDuration
	case "name":
		return nav.SortName
	case "created":
		return nav.SortCreated
	default:
		return nav.SortDefault
	}
}

// JobFailures prints the extracted failure summary of a job; verbose dumps
// the raw trace after the summary.
func (a *App) JobFailures(jobID int, verbose bool) error {
	job, err := a.Reader.GetJob(jobID)
	if err != nil {
		return err
	}
	log, err := a.Reader.JobLog(job)
	if err != nil {
		return err
	}
	summary := extract.Summarize(job.ID, log)

	fmt.Fprintf(a.Out, "Job %d: %s\n", job.ID, job.Name)
	fmt.Fprintf(a.Out, "Status: %s | Stage: %s | Duration: %s\n", colorStatus(job.Status), job.Stage, formatDuration(job))
	fmt.Fprintf(a.Out, "URL: %s\n", a.Links.Job(job.ID))
	a.printSummary(summary)
	if verbose {
		fmt.Fprintf(a.Out, "\nFull trace:\n%s\n", log)
	}
	return nil
}

// BatchFailures prints condensed failure summaries for several jobs. A job
// that cannot be fetched is reported and skipped; the batch continues.
func (a *App) BatchFailures(jobIDs []int) error {
	for _, id := range jobIDs {
		fmt.Fprintf(a.Out, "\n========================================\n")
		job, err := a.Reader.GetJob(id)
		if err != nil {
			a.Log.Warn("skipping job in batch", "job", id, "err", err)
			fmt.Fprintf(a.Out, "Could not fetch job %d: %v\n", id, err)
			continue
		}
		log, err := a.Reader.JobLog(job)
		if err != nil {
			a.Log.Warn("skipping job in batch", "job", id, "err", err)
			fmt.Fprintf(a.Out, "Could not fetch log for job %d: %v\n", id, err)
			continue
		}
		fmt.Fprintf(a.Out, "Job %d: %s (%s)\n", job.ID, job.Name, job.Status)
		a.printSummary(extract.Summarize(job.ID, log))
	}
	return nil
}

func (a *App) printSummary(s extract.Summary) {
	if len(s.Lines) == 0 {
		fmt.Fprintln(a.Out, "No failures extracted")
		return
	}
	fmt.Fprintln(a.Out, "Failures:")
	for _, line := range s.Lines {
		if line.Count > 1 {
			fmt.Fprintf(a.Out, "  • %s (x%d)\n", line.Text, line.Count)
		} else {
			fmt.Fprintf(a.Out, "  • %s\n", line.Text)
		}
	}
}

type statusSummary struct {
	total      int
	completed  int
	counts     map[domain.Status]int
	failedJobs []domain.Job
}

func summarize(jobs []domain.Job) statusSummary {
	s := statusSummary{total: len(jobs), counts: make(map[domain.Status]int)}
	for _, j := range jobs {
		s.counts[j.Status]++
		if j.Status.Terminal() {
			s.completed++
		}
		if j.Status == domain.StatusFailed {
			s.failedJobs = append(s.failedJobs, j)
		}
	}
	return s
}

func (s statusSummary) percentage() int {
	if s.total == 0 {
		return 0
	}
	return s.completed * 100 / s.total
}

func progressBar(done, total, width int) string {
	if total == 0 {
		return fmt.Sprintf("%*s", width, "")
	}
	filled := width * done / total
	bar := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar = append(bar, '█')
		} else {
			bar = append(bar, '░')
		}
	}
	return string(bar)
}

func formatDuration(j domain.Job) string {
	if !j.Finished() || j.Duration <= 0 {
		return "--"
	}
	d := j.Duration.Round(time.Second)
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
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
