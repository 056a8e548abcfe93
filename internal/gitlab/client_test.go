package gitlab

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("secret", srv.URL, domain.Project{Path: "group/app"}, 50)
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestListPipelinesMapsResponse(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.EscapedPath(); got != "/api/v4/projects/group%2Fapp/pipelines" {
			t.Errorf("path = %q", got)
		}
		q := r.URL.Query()
		if q.Get("ref") != "main" || q.Get("username") != "alice" {
			t.Errorf("query = %v", q)
		}
		fmt.Fprint(w, `[
			{"id": 12, "status": "success", "ref": "main", "sha": "abcdef1234567890",
			 "created_at": "2026-03-01T12:00:00Z", "web_url": "https://example.com/p/12",
			 "user": {"username": "alice"}},
			{"id": 11, "status": "created", "ref": "main", "sha": "ffff",
			 "created_at": "2026-03-01T11:00:00Z"}
		]`)
	}))

	pipelines, err := c.ListPipelines("main", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pipelines) != 2 {
		t.Fatalf("got %d pipelines", len(pipelines))
	}
	p := pipelines[0]
	if p.ID != 12 || p.Status != domain.StatusSuccess || p.Branch != "main" || p.User != "alice" {
		t.Errorf("mapped pipeline = %+v", p)
	}
	if pipelines[1].Status != domain.StatusPending {
		t.Errorf("created should normalize to pending, got %s", pipelines[1].Status)
	}
}

func TestListJobsMapsDurationAndPipelineID(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 7, "name": "unit", "stage": "test", "status": "failed",
			 "duration": 93.5, "created_at": "2026-03-01T12:00:00Z",
			 "finished_at": "2026-03-01T12:02:00Z"}
		]`)
	}))

	jobs, err := c.ListJobs(domain.Pipeline{ID: 12})
	if err != nil {
		t.Fatal(err)
	}
	j := jobs[0]
	if j.PipelineID != 12 {
		t.Errorf("PipelineID = %d, want 12", j.PipelineID)
	}
	if j.Duration != time.Duration(93.5*float64(time.Second)) {
		t.Errorf("Duration = %v", j.Duration)
	}
	if !j.Finished() {
		t.Error("failed job should report finished")
	}
}

func TestTransientErrorRetriedOnce(t *testing.T) {
	var calls int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[]`)
	}))

	if _, err := c.ListPipelines("", ""); err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestTransientErrorNotRetriedTwice(t *testing.T) {
	var calls int
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.ListPipelines("", "")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want exactly one retry", calls)
	}
}

func TestPermanentErrorsNotRetried(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
	}
	for _, tc := range cases {
		var calls int
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(tc.code)
		}))

		_, err := c.GetJob(1)
		if !errors.Is(err, tc.want) {
			t.Errorf("code %d: err = %v, want %v", tc.code, err, tc.want)
		}
		if calls != 1 {
			t.Errorf("code %d: calls = %d, want 1", tc.code, calls)
		}
	}
}

func TestJobLogReturnsRawText(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.EscapedPath(); got != "/api/v4/projects/group%2Fapp/jobs/7/trace" {
			t.Errorf("path = %q", got)
		}
		fmt.Fprint(w, "line one\nline two\n")
	}))

	text, err := c.JobLog(domain.Job{ID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if text != "line one\nline two\n" {
		t.Errorf("log = %q", text)
	}
}

func TestListMergeRequestPipelinesNewestFirst(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "status": "failed", "created_at": "2026-03-01T10:00:00Z"},
			{"id": 3, "status": "success", "created_at": "2026-03-01T12:00:00Z"},
			{"id": 2, "status": "success", "created_at": "2026-03-01T11:00:00Z"}
		]`)
	}))

	pipelines, err := c.ListMergeRequestPipelines(5)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{3, 2, 1} {
		if pipelines[i].ID != want {
			t.Fatalf("position %d = %d, want %d", i, pipelines[i].ID, want)
		}
	}
}

func TestListMergeRequestsMapsFields(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("source_branch") != "feature/x" || q.Get("state") != "opened" {
			t.Errorf("query = %v", q)
		}
		fmt.Fprint(w, `[
			{"iid": 42, "title": "Add login", "state": "opened",
			 "source_branch": "feature/x", "target_branch": "main",
			 "author": {"username": "bob"}, "has_conflicts": true,
			 "head_pipeline": {"id": 9, "status": "running"}}
		]`)
	}))

	mrs, err := c.ListMergeRequests("feature/x", "opened")
	if err != nil {
		t.Fatal(err)
	}
	mr := mrs[0]
	if mr.IID != 42 || mr.Author != "bob" || !mr.HasConflicts {
		t.Errorf("mapped MR = %+v", mr)
	}
	if mr.HeadPipelineID != 9 || mr.HeadPipelineStatus != domain.StatusRunning {
		t.Errorf("head pipeline = %d/%s", mr.HeadPipelineID, mr.HeadPipelineStatus)
	}
}

func TestDefaultBaseURL(t *testing.T) {
	c := NewClient("t", "", domain.Project{Path: "g/a"}, 10)
	if c.BaseURL() != defaultBaseURL {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}
