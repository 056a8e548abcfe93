package gitlab

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

const defaultBaseURL = "https://gitlab.com"

// Client issues read requests against the GitLab REST v4 API for a single
// project. Transient failures (transport errors, HTTP 429/5xx) are retried
// exactly once; 401 and 404 propagate immediately.
type Client struct {
	token      string
	baseURL    string
	project    domain.Project
	limit      int
	retryDelay time.Duration
	httpc      *http.Client
}

// Ensure Client fully implements domain.Reader.
var _ domain.Reader = (*Client)(nil)

// NewClient creates a GitLab API client.
// baseURL can be a self-hosted instance URL; pass empty string for gitlab.com.
// limit controls how many pipelines are fetched per list call; must be >= 1.
func NewClient(token, baseURL string, project domain.Project, limit int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		project:    project,
		limit:      limit,
		retryDelay: 500 * time.Millisecond,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// BaseURL returns the configured instance URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Project returns the project this client is bound to.
func (c *Client) Project() domain.Project { return c.project }

func (c *Client) projectPath() string {
	return url.PathEscape(c.project.Path)
}

// ListPipelines returns the most recent pipelines, optionally narrowed by
// branch ref and triggering username.
func (c *Client) ListPipelines(branch, user string) ([]domain.Pipeline, error) {
	q := url.Values{}
	q.Set("per_page", fmt.Sprint(c.limit))
	q.Set("order_by", "id")
	q.Set("sort", "desc")
	if branch != "" {
		q.Set("ref", branch)
	}
	if user != "" {
		q.Set("username", user)
	}
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/pipelines?%s", c.baseURL, c.projectPath(), q.Encode())
	var runs []gitLabPipeline
	if err := c.getJSON(apiURL, &runs); err != nil {
		return nil, err
	}
	pipelines := make([]domain.Pipeline, len(runs))
	for i, r := range runs {
		pipelines[i] = r.toPipeline()
	}
	return pipelines, nil
}

// GetPipeline returns a single pipeline by id.
func (c *Client) GetPipeline(id int) (domain.Pipeline, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/pipelines/%d", c.baseURL, c.projectPath(), id)
	var run gitLabPipeline
	if err := c.getJSON(apiURL, &run); err != nil {
		return domain.Pipeline{}, err
	}
	return run.toPipeline(), nil
}

// ListJobs returns all jobs of the given pipeline.
func (c *Client) ListJobs(pipeline domain.Pipeline) ([]domain.Job, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/pipelines/%d/jobs?per_page=100",
		c.baseURL, c.projectPath(), pipeline.ID)
	var raw []gitLabJob
	if err := c.getJSON(apiURL, &raw); err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, len(raw))
	for i, j := range raw {
		jobs[i] = j.toJob(pipeline.ID)
	}
	return jobs, nil
}

// GetJob returns a single job by id.
func (c *Client) GetJob(jobID int) (domain.Job, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/jobs/%d", c.baseURL, c.projectPath(), jobID)
	var raw gitLabJob
	if err := c.getJSON(apiURL, &raw); err != nil {
		return domain.Job{}, err
	}
	return raw.toJob(raw.Pipeline.ID), nil
}

// ListMergeRequests returns merge requests whose source branch matches
// sourceBranch. state is one of opened, merged, closed or all.
func (c *Client) ListMergeRequests(sourceBranch, state string) ([]domain.MergeRequest, error) {
	q := url.Values{}
	q.Set("source_branch", sourceBranch)
	q.Set("state", state)
	q.Set("order_by", "created_at")
	q.Set("sort", "desc")
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests?%s", c.baseURL, c.projectPath(), q.Encode())
	var raw []gitLabMergeRequest
	if err := c.getJSON(apiURL, &raw); err != nil {
		return nil, err
	}
	mrs := make([]domain.MergeRequest, len(raw))
	for i, mr := range raw {
		mrs[i] = mr.toMergeRequest()
	}
	return mrs, nil
}

// ListMergeRequestPipelines returns all pipelines run for a merge request,
// newest first.
func (c *Client) ListMergeRequestPipelines(mrIID int) ([]domain.Pipeline, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d/pipelines",
		c.baseURL, c.projectPath(), mrIID)
	var runs []gitLabPipeline
	if err := c.getJSON(apiURL, &runs); err != nil {
		return nil, err
	}
	pipelines := make([]domain.Pipeline, len(runs))
	for i, r := range runs {
		pipelines[i] = r.toPipeline()
	}
	sortNewestFirst(pipelines)
	return pipelines, nil
}

// JobLog returns the full raw log trace for the given job.
func (c *Client) JobLog(job domain.Job) (string, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/jobs/%d/trace", c.baseURL, c.projectPath(), job.ID)
	var body string
	err := c.withRetry(func() error {
		var getErr error
		body, getErr = c.getText(apiURL)
		return getErr
	})
	return body, err
}

func sortNewestFirst(pipelines []domain.Pipeline) {
	for i := 1; i < len(pipelines); i++ {
		for j := i; j > 0 && pipelines[j].CreatedAt.After(pipelines[j-1].CreatedAt); j-- {
			pipelines[j], pipelines[j-1] = pipelines[j-1], pipelines[j]
		}
	}
}

// withRetry runs fn and retries it exactly once after a short delay when the
// failure is transient. Permanent failures propagate immediately.
func (c *Client) withRetry(fn func() error) error {
	err := fn()
	if err == nil || !domain.Transient(err) {
		return err
	}
	time.Sleep(c.retryDelay)
	return fn()
}

func (c *Client) getJSON(apiURL string, target any) error {
	return c.withRetry(func() error {
		body, err := c.get(apiURL)
		if err != nil {
			return err
		}
		defer body.Close()
		if err := json.NewDecoder(body).Decode(target); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

func (c *Client) getText(apiURL string) (string, error) {
	body, err := c.get(apiURL)
	if err != nil {
		return "", err
	}
	defer body.Close()
	b, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(b), nil
}

func (c *Client) get(apiURL string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w: %v", domain.ErrTransport, err)
	}
	if err := classifyStatus(resp.StatusCode, resp.Status); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// classifyStatus normalizes HTTP status codes into the domain error taxonomy.
func classifyStatus(code int, status string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("gitlab API error: %s: %w", status, domain.ErrUnauthorized)
	case code == http.StatusNotFound:
		return fmt.Errorf("gitlab API error: %s: %w", status, domain.ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("gitlab API error: %s: %w", status, domain.ErrRateLimited)
	case code >= 500:
		return fmt.Errorf("gitlab API error: %s: %w", status, domain.ErrTransport)
	case code >= 400:
		return fmt.Errorf("gitlab API error: %s", status)
	}
	return nil
}
