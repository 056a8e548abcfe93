package nav

import (
	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/extract"
)

// frame is one stack level: its view parameters plus the last data applied
// for it. A transient fetch failure lands in notice and leaves the previous
// contents visible.
type frame struct {
	view         View
	pipelines    []domain.Pipeline
	jobs         []domain.Job
	job          domain.Job
	log          string
	summaries    []extract.Summary
	appliedToken uint64
	notice       error
}

// Engine owns the navigation stack. The pipeline list is the sole initial
// state; popping it terminates the engine. The engine is not safe for
// concurrent use: all intents must arrive on the foreground control flow,
// with background refreshes funneled through the same path.
type Engine struct {
	stack      []frame
	seq        uint64
	terminated bool
}

// NewEngine creates an engine positioned at the pipeline list.
func NewEngine() *Engine {
	return &Engine{stack: []frame{{view: PipelineList{}}}}
}

// Current returns the top of the stack, or nil after termination.
func (e *Engine) Current() View {
	if e.terminated {
		return nil
	}
	return e.top().view
}

// Depth returns the stack depth.
func (e *Engine) Depth() int { return len(e.stack) }

// Terminated reports whether the root view has been popped.
func (e *Engine) Terminated() bool { return e.terminated }

func (e *Engine) top() *frame {
	return &e.stack[len(e.stack)-1]
}

// DrillInto descends into the selected row of the current view: a pipeline
// row opens its job list, a job row opens the job detail. row indexes the
// visible (filtered, sorted) rows. Returns ErrInvalidSelection when the
// current view has no drillable child for that row.
func (e *Engine) DrillInto(row int) (View, error) {
	if e.terminated {
		return nil, domain.ErrInvalidSelection
	}
	switch e.top().view.(type) {
	case PipelineList:
		rows := e.VisiblePipelines()
		if row < 0 || row >= len(rows) {
			return nil, domain.ErrInvalidSelection
		}
		return e.push(JobList{Pipeline: rows[row]}), nil
	case JobList:
		rows := e.VisibleJobs()
		if row < 0 || row >= len(rows) {
			return nil, domain.ErrInvalidSelection
		}
		return e.push(JobDetail{Job: rows[row]}), nil
	case FailedJobs:
		rows := e.VisibleJobs()
		if row < 0 || row >= len(rows) {
			return nil, domain.ErrInvalidSelection
		}
		return e.push(JobDetail{Job: rows[row]}), nil
	default:
		return nil, domain.ErrInvalidSelection
	}
}

// ShowFailedJobs opens the failed-jobs summary of the pipeline owning the
// current job list. Valid only from a JobList.
func (e *Engine) ShowFailedJobs() (View, error) {
	if e.terminated {
		return nil, domain.ErrInvalidSelection
	}
	v, ok := e.top().view.(JobList)
	if !ok {
		return nil, domain.ErrInvalidSelection
	}
	return e.push(FailedJobs{Pipeline: v.Pipeline}), nil
}

func (e *Engine) push(v View) View {
	e.stack = append(e.stack, frame{view: v})
	return v
}

// GoBack pops the stack and returns the revealed parent view with its filter,
// sort and data intact. Popping the last frame terminates the engine, in
// which case ok is false.
func (e *Engine) GoBack() (View, bool) {
	if e.terminated {
		return nil, false
	}
	e.stack = e.stack[:len(e.stack)-1]
	if len(e.stack) == 0 {
		e.terminated = true
		return nil, false
	}
	return e.top().view, true
}

// ApplyFilter replaces the filter of the current view only; ancestors keep
// theirs. Fetched data is untouched, the filter applies at render time.
func (e *Engine) ApplyFilter(f Filter) {
	if e.terminated {
		return
	}
	t := e.top()
	switch v := t.view.(type) {
	case PipelineList:
		v.Filter = f
		t.view = v
	case JobList:
		v.Filter = f
		t.view = v
	}
}

// ApplySort replaces the sort key of the current view only.
func (e *Engine) ApplySort(key SortKey) {
	if e.terminated {
		return
	}
	t := e.top()
	switch v := t.view.(type) {
	case PipelineList:
		v.Sort = key
		t.view = v
	case JobList:
		v.Sort = key
		t.view = v
	}
}

// Refresh produces the fetch request that repopulates the current view.
// It does not block and does not mutate any data; the caller performs the
// fetch and feeds the result back through Apply.
func (e *Engine) Refresh() FetchRequest {
	e.seq++
	return FetchRequest{Token: e.seq, View: e.Current()}
}

// Apply installs a fetch result into the current view. The result is
// discarded (returning false) when its view no longer matches the current
// one, or when a newer result for the same view has already been applied.
// A result carrying an error becomes a notice on the frame; previously
// applied contents stay visible.
func (e *Engine) Apply(res FetchResult) bool {
	if e.terminated {
		return false
	}
	t := e.top()
	if !SameIdentity(res.View, t.view) {
		return false
	}
	if res.Token <= t.appliedToken {
		return false
	}
	t.appliedToken = res.Token
	if res.Err != nil {
		t.notice = res.Err
		return true
	}
	t.notice = nil
	switch t.view.(type) {
	case PipelineList:
		t.pipelines = res.Pipelines
	case JobList:
		t.jobs = res.Jobs
	case JobDetail:
		t.job = res.Job
		t.log = res.Log
		t.summaries = res.Summaries
	case FailedJobs:
		t.jobs = res.Jobs
		t.summaries = res.Summaries
	}
	return true
}

// VisiblePipelines returns the pipeline rows of the current view after
// filter and sort.
func (e *Engine) VisiblePipelines() []domain.Pipeline {
	if e.terminated {
		return nil
	}
	t := e.top()
	v, ok := t.view.(PipelineList)
	if !ok {
		return nil
	}
	return SortPipelines(FilterPipelines(t.pipelines, v.Filter), v.Sort)
}

// VisibleJobs returns the job rows of the current view after filter, stage
// grouping and sort. For the failed-jobs summary the failed-only predicate
// is fixed.
func (e *Engine) VisibleJobs() []domain.Job {
	if e.terminated {
		return nil
	}
	t := e.top()
	switch v := t.view.(type) {
	case JobList:
		return SortJobs(FilterJobs(t.jobs, v.Filter), v.Sort)
	case FailedJobs:
		return SortJobs(FilterJobs(t.jobs, Filter{FailedOnly: true}), SortDefault)
	default:
		return nil
	}
}

// Job returns the job of the current detail view. Before the first fetch
// result arrives the job carried by the view itself is returned.
func (e *Engine) Job() domain.Job {
	if e.terminated {
		return domain.Job{}
	}
	t := e.top()
	if v, ok := t.view.(JobDetail); ok && t.job.ID == 0 {
		return v.Job
	}
	return t.job
}

// Log returns the log text of the current detail view.
func (e *Engine) Log() string {
	if e.terminated {
		return ""
	}
	return e.top().log
}

// Summaries returns the failure summaries of the current view.
func (e *Engine) Summaries() []extract.Summary {
	if e.terminated {
		return nil
	}
	return e.top().summaries
}

// Notice returns the transient failure of the last fetch for the current
// view, or nil.
func (e *Engine) Notice() error {
	if e.terminated {
		return nil
	}
	return e.top().notice
}
