package domain

import "time"

// Status represents the execution state of a pipeline or job as reported
// by GitLab.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
	StatusSkipped  Status = "skipped"
	StatusManual   Status = "manual"
)

// Terminal reports whether the status is final. GitLab never rewrites the
// history of a finished pipeline or job, so records in a terminal status can
// be cached indefinitely.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled, StatusSkipped:
		return true
	}
	return false
}

// Pipeline represents a CI pipeline run against a commit.
type Pipeline struct {
	ID        int
	Status    Status
	Branch    string
	User      string
	CommitSHA string
	CreatedAt time.Time
	WebURL    string
}

// Job represents a single unit of work within a pipeline, grouped by stage.
// Duration is zero until the job has finished.
type Job struct {
	ID         int
	PipelineID int
	Name       string
	Stage      string
	Status     Status
	Duration   time.Duration
	CreatedAt  time.Time
	FinishedAt time.Time
	WebURL     string
}

// Finished reports whether the job has reached a terminal status and
// therefore carries a meaningful duration.
func (j Job) Finished() bool {
	return j.Status.Terminal()
}

// MergeRequest represents a merge request, including the status of its most
// recent (head) pipeline when one exists.
type MergeRequest struct {
	ID                 int
	IID                int
	Title              string
	State              string
	Author             string
	SourceBranch       string
	TargetBranch       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	WebURL             string
	HasConflicts       bool
	MergeStatus        string
	HeadPipelineID     int
	HeadPipelineStatus Status
}
