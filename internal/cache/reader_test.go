package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// countingReader records how many times each read hits the backing API.
type countingReader struct {
	jobs    []domain.Job
	job     domain.Job
	logText string
	calls   map[string]int
}

func newCountingReader() *countingReader {
	return &countingReader{calls: make(map[string]int)}
}

func (r *countingReader) bump(name string) error {
	r.calls[name]++
	return nil
}

func (r *countingReader) ListPipelines(branch, user string) ([]domain.Pipeline, error) {
	return nil, r.bump("ListPipelines")
}

func (r *countingReader) GetPipeline(id int) (domain.Pipeline, error) {
	return domain.Pipeline{ID: id}, r.bump("GetPipeline")
}

func (r *countingReader) ListJobs(pipeline domain.Pipeline) ([]domain.Job, error) {
	return r.jobs, r.bump("ListJobs")
}

func (r *countingReader) GetJob(jobID int) (domain.Job, error) {
	return r.job, r.bump("GetJob")
}

func (r *countingReader) ListMergeRequests(sourceBranch, state string) ([]domain.MergeRequest, error) {
	return nil, r.bump("ListMergeRequests")
}

func (r *countingReader) ListMergeRequestPipelines(mrIID int) ([]domain.Pipeline, error) {
	return nil, r.bump("ListMergeRequestPipelines")
}

func (r *countingReader) JobLog(job domain.Job) (string, error) {
	return r.logText, r.bump("JobLog")
}

func TestListJobsCachedForTerminalPipeline(t *testing.T) {
	inner := newCountingReader()
	inner.jobs = []domain.Job{{ID: 1, Stage: "test", Status: domain.StatusFailed}}
	r := NewReader(inner, New(), nil, nil)

	done := domain.Pipeline{ID: 9, Status: domain.StatusFailed}
	for i := 0; i < 3; i++ {
		jobs, err := r.ListJobs(done)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	}
	assert.Equal(t, 1, inner.calls["ListJobs"], "finished pipeline should be fetched once")
}

func TestListJobsNotCachedForRunningPipeline(t *testing.T) {
	inner := newCountingReader()
	r := NewReader(inner, New(), nil, nil)

	running := domain.Pipeline{ID: 9, Status: domain.StatusRunning}
	for i := 0; i < 3; i++ {
		_, err := r.ListJobs(running)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls["ListJobs"], "running pipeline must always be refetched")
}

func TestJobLogCachedOnlyWhenJobFinished(t *testing.T) {
	inner := newCountingReader()
	inner.logText = "trace"
	r := NewReader(inner, New(), nil, nil)

	running := domain.Job{ID: 4, Status: domain.StatusRunning}
	r.JobLog(running)
	r.JobLog(running)
	assert.Equal(t, 2, inner.calls["JobLog"])

	finished := domain.Job{ID: 5, Status: domain.StatusFailed}
	r.JobLog(finished)
	r.JobLog(finished)
	assert.Equal(t, 3, inner.calls["JobLog"], "finished job log should be served from cache")
}

func TestGetJobCacheabilityDecidedByFetchedStatus(t *testing.T) {
	inner := newCountingReader()
	inner.job = domain.Job{ID: 6, Status: domain.StatusRunning}
	r := NewReader(inner, New(), nil, nil)

	r.GetJob(6)
	r.GetJob(6)
	assert.Equal(t, 2, inner.calls["GetJob"])

	inner.job = domain.Job{ID: 6, Status: domain.StatusSuccess}
	r.GetJob(6)
	r.GetJob(6)
	assert.Equal(t, 3, inner.calls["GetJob"])
}

func TestDiskPromotedToMemory(t *testing.T) {
	disk := openTestStore(t)
	jobs := []domain.Job{{ID: 1, Status: domain.StatusSuccess}}
	require.NoError(t, disk.Put(KindPipeline, 9, jobs, domain.StatusSuccess))

	inner := newCountingReader()
	r := NewReader(inner, New(), disk, nil)

	got, err := r.ListJobs(domain.Pipeline{ID: 9, Status: domain.StatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, jobs, got)
	assert.Zero(t, inner.calls["ListJobs"], "disk hit should not reach the network")

	// Second read comes from memory even if the disk row disappears.
	require.NoError(t, disk.Delete(KindPipeline, 9))
	got, err = r.ListJobs(domain.Pipeline{ID: 9, Status: domain.StatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, jobs, got)
	assert.Zero(t, inner.calls["ListJobs"])
}

func TestInvalidatePipelineDropsBothLayers(t *testing.T) {
	disk := openTestStore(t)
	inner := newCountingReader()
	inner.jobs = []domain.Job{{ID: 1, Status: domain.StatusSuccess}}
	r := NewReader(inner, New(), disk, nil)

	done := domain.Pipeline{ID: 9, Status: domain.StatusSuccess}
	r.ListJobs(done)
	require.Equal(t, 1, inner.calls["ListJobs"])

	r.InvalidatePipeline(9)
	r.ListJobs(done)
	assert.Equal(t, 2, inner.calls["ListJobs"], "invalidation should force a refetch")
}

func TestVolatileListsAlwaysDelegate(t *testing.T) {
	inner := newCountingReader()
	r := NewReader(inner, New(), nil, nil)

	r.ListPipelines("", "")
	r.ListPipelines("", "")
	r.ListMergeRequests("branch", "opened")
	r.ListMergeRequests("branch", "opened")
	r.ListMergeRequestPipelines(1)
	r.ListMergeRequestPipelines(1)

	assert.Equal(t, 2, inner.calls["ListPipelines"])
	assert.Equal(t, 2, inner.calls["ListMergeRequests"])
	assert.Equal(t, 2, inner.calls["ListMergeRequestPipelines"])
}
