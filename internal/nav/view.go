// Package nav implements the drill-down navigation state machine of the
// monitor: pipeline list, job list, job detail and failed-jobs summary,
// connected by a stack. The engine never performs I/O itself; it hands out
// fetch requests and accepts results, discarding any that arrive for a view
// the user has already left.
package nav

import (
	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/extract"
)

// ViewKind discriminates the variants of View.
type ViewKind int

const (
	KindPipelineList ViewKind = iota
	KindJobList
	KindJobDetail
	KindFailedJobs
)

func (k ViewKind) String() string {
	switch k {
	case KindPipelineList:
		return "pipelines"
	case KindJobList:
		return "jobs"
	case KindJobDetail:
		return "job"
	case KindFailedJobs:
		return "failed"
	}
	return "unknown"
}

// Filter narrows the rows of a list view at render time. It never evicts
// fetched data.
type Filter struct {
	Branch     string // substring match on branch ref
	User       string // substring match on triggering user
	FailedOnly bool   // keep only failed rows
}

// IsZero reports whether the filter passes everything through.
func (f Filter) IsZero() bool {
	return f.Branch == "" && f.User == "" && !f.FailedOnly
}

// SortKey selects the active ordering of a list view.
type SortKey int

const (
	SortDefault  SortKey = iota // reverse-chronological by creation time
	SortDuration                // longest first, unfinished last
	SortName
	SortCreated
)

func (k SortKey) String() string {
	switch k {
	case SortDuration:
		return "duration"
	case SortName:
		return "name"
	case SortCreated:
		return "created"
	}
	return "default"
}

// View is the discriminated union of navigation states. Each variant carries
// only the fields it needs; the scoping resource rides along so that fetch
// executors know the parent's status without a second lookup.
type View interface {
	Kind() ViewKind
	// Scope returns the resource id the view is bound to: the pipeline id
	// for job lists and failed-jobs summaries, the job id for details, and
	// zero for the root pipeline list.
	Scope() int
}

// PipelineList is the root view: recent pipelines of the project.
type PipelineList struct {
	Filter Filter
	Sort   SortKey
}

func (PipelineList) Kind() ViewKind { return KindPipelineList }
func (PipelineList) Scope() int     { return 0 }

// JobList shows the jobs of one pipeline, grouped by stage.
type JobList struct {
	Pipeline domain.Pipeline
	Filter   Filter
	Sort     SortKey
}

func (JobList) Kind() ViewKind { return KindJobList }
func (v JobList) Scope() int   { return v.Pipeline.ID }

// JobDetail shows a single job and its log.
type JobDetail struct {
	Job domain.Job
}

func (JobDetail) Kind() ViewKind { return KindJobDetail }
func (v JobDetail) Scope() int   { return v.Job.ID }

// FailedJobs shows the failed jobs of a pipeline with their extracted
// failure summaries.
type FailedJobs struct {
	Pipeline domain.Pipeline
}

func (FailedJobs) Kind() ViewKind { return KindFailedJobs }
func (v FailedJobs) Scope() int   { return v.Pipeline.ID }

// SameIdentity reports whether two views address the same navigation state.
// Filter and sort parameters are deliberately excluded: changing them is a
// self-transition, not a navigation, so an in-flight fetch stays valid.
func SameIdentity(a, b View) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a.Scope() == b.Scope()
}

// FetchRequest asks a caller to load the data needed to render a view.
// Token orders results issued for the same view identity.
type FetchRequest struct {
	Token uint64
	View  View
}

// FetchResult carries the loaded data back into the engine. Exactly the
// fields relevant to the view kind are populated.
type FetchResult struct {
	Token     uint64
	View      View
	Pipelines []domain.Pipeline
	Jobs      []domain.Job
	Job       domain.Job
	Log       string
	Summaries []extract.Summary
	Err       error
}
