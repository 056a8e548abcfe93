package cache

import (
	"log/slog"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// Reader wraps a domain.Reader and short-circuits reads of immutable
// resources to the cache. Jobs of a finished pipeline, finished jobs and
// their logs are served from memory, then from the optional persistent
// store, then from the network. List calls for volatile collections
// (pipelines, merge requests) always hit the network.
type Reader struct {
	inner domain.Reader
	mem   *Cache
	disk  *Store // may be nil
	log   *slog.Logger
}

// Ensure Reader implements domain.Reader.
var _ domain.Reader = (*Reader)(nil)

// NewReader creates a caching reader. disk may be nil to run memory-only.
func NewReader(inner domain.Reader, mem *Cache, disk *Store, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{inner: inner, mem: mem, disk: disk, log: log}
}

// ListPipelines always delegates: the pipeline list changes as new runs
// start, so it is never cached.
func (r *Reader) ListPipelines(branch, user string) ([]domain.Pipeline, error) {
	return r.inner.ListPipelines(branch, user)
}

// GetPipeline always delegates: the record is cheap and usually rides along
// in list responses anyway.
func (r *Reader) GetPipeline(id int) (domain.Pipeline, error) {
	return r.inner.GetPipeline(id)
}

// ListJobs serves the job list of a finished pipeline from cache.
func (r *Reader) ListJobs(pipeline domain.Pipeline) ([]domain.Job, error) {
	if pipeline.Status.Terminal() {
		if v, ok := r.mem.Get(KindPipeline, pipeline.ID); ok {
			if jobs, ok := v.([]domain.Job); ok {
				return jobs, nil
			}
		}
		if r.disk != nil {
			var jobs []domain.Job
			hit, err := r.disk.Get(KindPipeline, pipeline.ID, &jobs)
			if err != nil {
				r.log.Warn("cache read failed", "kind", KindPipeline, "id", pipeline.ID, "err", err)
			} else if hit {
				r.mem.Put(KindPipeline, pipeline.ID, jobs, pipeline.Status)
				return jobs, nil
			}
		}
	}
	jobs, err := r.inner.ListJobs(pipeline)
	if err != nil {
		return nil, err
	}
	r.store(KindPipeline, pipeline.ID, jobs, pipeline.Status)
	return jobs, nil
}

// GetJob serves a finished job from cache. Whether the payload is cacheable
// is only known after the fetch, when its status is visible.
func (r *Reader) GetJob(jobID int) (domain.Job, error) {
	if v, ok := r.mem.Get(KindJob, jobID); ok {
		if job, ok := v.(domain.Job); ok {
			return job, nil
		}
	}
	if r.disk != nil {
		var job domain.Job
		hit, err := r.disk.Get(KindJob, jobID, &job)
		if err != nil {
			r.log.Warn("cache read failed", "kind", KindJob, "id", jobID, "err", err)
		} else if hit {
			r.mem.Put(KindJob, jobID, job, job.Status)
			return job, nil
		}
	}
	job, err := r.inner.GetJob(jobID)
	if err != nil {
		return domain.Job{}, err
	}
	r.store(KindJob, jobID, job, job.Status)
	return job, nil
}

// ListMergeRequests always delegates.
func (r *Reader) ListMergeRequests(sourceBranch, state string) ([]domain.MergeRequest, error) {
	return r.inner.ListMergeRequests(sourceBranch, state)
}

// ListMergeRequestPipelines always delegates.
func (r *Reader) ListMergeRequestPipelines(mrIID int) ([]domain.Pipeline, error) {
	return r.inner.ListMergeRequestPipelines(mrIID)
}

// JobLog serves the trace of a finished job from cache. A running job's log
// is still growing, so it is fetched fresh every time.
func (r *Reader) JobLog(job domain.Job) (string, error) {
	if job.Status.Terminal() {
		if v, ok := r.mem.Get(KindLog, job.ID); ok {
			if text, ok := v.(string); ok {
				return text, nil
			}
		}
		if r.disk != nil {
			var text string
			hit, err := r.disk.Get(KindLog, job.ID, &text)
			if err != nil {
				r.log.Warn("cache read failed", "kind", KindLog, "id", job.ID, "err", err)
			} else if hit {
				r.mem.Put(KindLog, job.ID, text, job.Status)
				return text, nil
			}
		}
	}
	text, err := r.inner.JobLog(job)
	if err != nil {
		return "", err
	}
	r.store(KindLog, job.ID, text, job.Status)
	return text, nil
}

// InvalidatePipeline drops the cached job list for a pipeline, e.g. after a
// manual full refresh while the pipeline was still believed non-terminal.
func (r *Reader) InvalidatePipeline(id int) {
	r.mem.Invalidate(KindPipeline, id)
	if r.disk != nil {
		if err := r.disk.Delete(KindPipeline, id); err != nil {
			r.log.Warn("cache delete failed", "kind", KindPipeline, "id", id, "err", err)
		}
	}
}

func (r *Reader) store(kind Kind, id int, payload any, status domain.Status) {
	if !r.mem.Put(kind, id, payload, status) {
		return
	}
	if r.disk != nil {
		if err := r.disk.Put(kind, id, payload, status); err != nil {
			r.log.Warn("cache write failed", "kind", kind, "id", id, "err", err)
		}
	}
}
