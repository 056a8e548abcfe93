// Package source executes the fetch requests produced by the navigation
// engine against a domain.Reader and shapes the responses into fetch
// results. It is the only place where a request blocks on the network.
package source

import (
	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/extract"
	"github.com/beardedgiant/pipewatch/internal/nav"
)

// Source resolves fetch requests. The reader is normally the caching
// decorator around the GitLab client.
type Source struct {
	reader domain.Reader
}

// New creates a source backed by reader.
func New(reader domain.Reader) *Source {
	return &Source{reader: reader}
}

// Execute loads the data needed to render the view of req. It blocks until
// the underlying reads complete; errors are carried in the result, never
// returned out of band, so the caller can feed them into the engine as a
// notice.
func (s *Source) Execute(req nav.FetchRequest) nav.FetchResult {
	res := nav.FetchResult{Token: req.Token, View: req.View}
	switch v := req.View.(type) {
	case nav.PipelineList:
		res.Pipelines, res.Err = s.reader.ListPipelines("", "")

	case nav.JobList:
		res.Jobs, res.Err = s.reader.ListJobs(v.Pipeline)

	case nav.JobDetail:
		job, err := s.reader.GetJob(v.Job.ID)
		if err != nil {
			res.Err = err
			return res
		}
		res.Job = job
		log, err := s.reader.JobLog(job)
		if err != nil {
			res.Err = err
			return res
		}
		res.Log = log
		if job.Status == domain.StatusFailed {
			res.Summaries = []extract.Summary{extract.Summarize(job.ID, log)}
		}

	case nav.FailedJobs:
		jobs, err := s.reader.ListJobs(v.Pipeline)
		if err != nil {
			res.Err = err
			return res
		}
		res.Jobs = jobs
		for _, job := range jobs {
			if job.Status != domain.StatusFailed {
				continue
			}
			log, err := s.reader.JobLog(job)
			if err != nil {
				// One unreadable log should not sink the whole summary.
				res.Summaries = append(res.Summaries, extract.Summary{JobID: job.ID})
				continue
			}
			res.Summaries = append(res.Summaries, extract.Summarize(job.ID, log))
		}
	}
	return res
}
