package domain

// Project identifies the GitLab project being observed, e.g. "group/app".
type Project struct {
	Path string
}

// Reader is the port interface for everything pipewatch reads from GitLab.
// The domain does not know about HTTP or caching; adapters and decorators
// implement this.
type Reader interface {
	ListPipelines(branch, user string) ([]Pipeline, error)
	GetPipeline(id int) (Pipeline, error)
	ListJobs(pipeline Pipeline) ([]Job, error)
	GetJob(jobID int) (Job, error)
	ListMergeRequests(sourceBranch, state string) ([]MergeRequest, error)
	ListMergeRequestPipelines(mrIID int) ([]Pipeline, error)
	JobLog(job Job) (string, error)
}
