package gitlab

import (
	"time"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

type gitLabPipeline struct {
	ID        int    `json:"id"`
	Ref       string `json:"ref"`
	SHA       string `json:"sha"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	WebURL    string `json:"web_url"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (r gitLabPipeline) toPipeline() domain.Pipeline {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	user := r.User.Username
	if user == "" {
		user = "unknown"
	}
	return domain.Pipeline{
		ID:        r.ID,
		Status:    mapStatus(r.Status),
		Branch:    r.Ref,
		User:      user,
		CommitSHA: r.SHA,
		CreatedAt: created,
		WebURL:    r.WebURL,
	}
}

type gitLabJob struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Stage      string  `json:"stage"`
	Status     string  `json:"status"`
	Duration   float64 `json:"duration"`
	CreatedAt  string  `json:"created_at"`
	FinishedAt string  `json:"finished_at"`
	WebURL     string  `json:"web_url"`
	Pipeline   struct {
		ID int `json:"id"`
	} `json:"pipeline"`
}

func (j gitLabJob) toJob(pipelineID int) domain.Job {
	created, _ := time.Parse(time.RFC3339, j.CreatedAt)
	finished, _ := time.Parse(time.RFC3339, j.FinishedAt)
	return domain.Job{
		ID:         j.ID,
		PipelineID: pipelineID,
		Name:       j.Name,
		Stage:      j.Stage,
		Status:     mapStatus(j.Status),
		Duration:   time.Duration(j.Duration * float64(time.Second)),
		CreatedAt:  created,
		FinishedAt: finished,
		WebURL:     j.WebURL,
	}
}

type gitLabMergeRequest struct {
	ID           int    `json:"id"`
	IID          int    `json:"iid"`
	Title        string `json:"title"`
	State        string `json:"state"`
	TargetBranch string `json:"target_branch"`
	SourceBranch string `json:"source_branch"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	WebURL       string `json:"web_url"`
	HasConflicts bool   `json:"has_conflicts"`
	MergeStatus  string `json:"merge_status"`
	Author       struct {
		Username string `json:"username"`
	} `json:"author"`
	HeadPipeline *struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	} `json:"head_pipeline"`
}

func (mr gitLabMergeRequest) toMergeRequest() domain.MergeRequest {
	created, _ := time.Parse(time.RFC3339, mr.CreatedAt)
	updated, _ := time.Parse(time.RFC3339, mr.UpdatedAt)
	out := domain.MergeRequest{
		ID:           mr.ID,
		IID:          mr.IID,
		Title:        mr.Title,
		State:        mr.State,
		Author:       mr.Author.Username,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		CreatedAt:    created,
		UpdatedAt:    updated,
		WebURL:       mr.WebURL,
		HasConflicts: mr.HasConflicts,
		MergeStatus:  mr.MergeStatus,
	}
	if mr.HeadPipeline != nil {
		out.HeadPipelineID = mr.HeadPipeline.ID
		out.HeadPipelineStatus = mapStatus(mr.HeadPipeline.Status)
	}
	return out
}

func mapStatus(status string) domain.Status {
	switch status {
	case "success":
		return domain.StatusSuccess
	case "failed":
		return domain.StatusFailed
	case "running":
		return domain.StatusRunning
	case "canceled":
		return domain.StatusCanceled
	case "skipped":
		return domain.StatusSkipped
	case "manual":
		return domain.StatusManual
	case "pending", "created", "waiting_for_resource", "preparing", "scheduled":
		return domain.StatusPending
	default:
		return domain.StatusPending
	}
}
