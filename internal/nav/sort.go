package nav

import (
	"sort"
	"strings"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// stagePrecedence fixes the order of the well-known stages. Stages outside
// this list rank after it in first-seen order.
var stagePrecedence = map[string]int{
	"build":   0,
	"test":    1,
	"deploy":  2,
	"cleanup": 3,
}

// FilterPipelines returns the pipelines passing f, preserving input order.
func FilterPipelines(pipelines []domain.Pipeline, f Filter) []domain.Pipeline {
	if f.IsZero() {
		return append([]domain.Pipeline(nil), pipelines...)
	}
	out := make([]domain.Pipeline, 0, len(pipelines))
	for _, p := range pipelines {
		if f.Branch != "" && !strings.Contains(p.Branch, f.Branch) {
			continue
		}
		if f.User != "" && !strings.Contains(p.User, f.User) {
			continue
		}
		if f.FailedOnly && p.Status != domain.StatusFailed {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortPipelines returns a sorted copy. The default and created orders are
// reverse-chronological; name sorts by branch.
func SortPipelines(pipelines []domain.Pipeline, key SortKey) []domain.Pipeline {
	out := append([]domain.Pipeline(nil), pipelines...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if key == SortName {
			if a.Branch != b.Branch {
				return a.Branch < b.Branch
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out
}

// FilterJobs returns the jobs passing f, preserving input order.
func FilterJobs(jobs []domain.Job, f Filter) []domain.Job {
	if f.IsZero() {
		return append([]domain.Job(nil), jobs...)
	}
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.FailedOnly && j.Status != domain.StatusFailed {
			continue
		}
		out = append(out, j)
	}
	return out
}

// SortJobs returns a sorted copy. Jobs are always grouped by stage first
// (build, test, deploy, cleanup, then any other stage in first-seen order);
// the active sort key orders rows within a stage. Duration sorts longest
// first with unfinished jobs after all timed jobs, ties by job id ascending.
func SortJobs(jobs []domain.Job, key SortKey) []domain.Job {
	ranks := stageRanks(jobs)
	out := append([]domain.Job(nil), jobs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := ranks[a.Stage], ranks[b.Stage]; ra != rb {
			return ra < rb
		}
		switch key {
		case SortDuration:
			if a.Finished() != b.Finished() {
				return a.Finished()
			}
			if a.Finished() && a.Duration != b.Duration {
				return a.Duration > b.Duration
			}
			return a.ID < b.ID
		case SortName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})
	return out
}

// stageRanks assigns each stage its precedence, falling back to first-seen
// order after the well-known stages.
func stageRanks(jobs []domain.Job) map[string]int {
	ranks := make(map[string]int)
	next := len(stagePrecedence)
	for _, j := range jobs {
		if _, ok := ranks[j.Stage]; ok {
			continue
		}
		if r, ok := stagePrecedence[j.Stage]; ok {
			ranks[j.Stage] = r
		} else {
			ranks[j.Stage] = next
			next++
		}
	}
	return ranks
}

// StageOrder returns the distinct stages of jobs in display order.
func StageOrder(jobs []domain.Job) []string {
	ranks := stageRanks(jobs)
	stages := make([]string, 0, len(ranks))
	for stage := range ranks {
		stages = append(stages, stage)
	}
	sort.SliceStable(stages, func(i, j int) bool {
		return ranks[stages[i]] < ranks[stages[j]]
	})
	return stages
}
