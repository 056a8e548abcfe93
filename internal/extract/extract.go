// Package extract condenses raw job log text into a short list of failure
// lines. It is a pure function of its input: no network access, no state,
// identical input always yields identical output.
package extract

import "strings"

// maxLines caps how many distinct failure lines a single log contributes.
const maxLines = 20

// Line is one extracted failure, with the number of consecutive times it
// repeated in the log.
type Line struct {
	Text  string
	Count int
}

// Summary is the ordered failure extraction for one job. An empty Lines
// slice is a valid result, not an error: the log simply contained no
// recognizable failure pattern.
type Summary struct {
	JobID int
	Lines []Line
}

// Extract scans logText line by line and returns the ordered failure lines,
// first-appearance order preserved, consecutive duplicates collapsed.
// Test-framework FAILED markers are the highest-quality signal; when any are
// present, generic error lines are suppressed.
func Extract(logText string) []Line {
	lines := strings.Split(logText, "\n")

	failed := collect(lines, isTestFailureLine)
	if len(failed) > 0 {
		return failed
	}
	return collect(lines, isErrorLine)
}

// Summarize runs Extract and tags the result with the owning job id.
func Summarize(jobID int, logText string) Summary {
	return Summary{JobID: jobID, Lines: Extract(logText)}
}

func collect(lines []string, match func(string) bool) []Line {
	var out []Line
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || !match(line) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Text == line {
			out[n-1].Count++
			continue
		}
		if len(out) == maxLines {
			break
		}
		out = append(out, Line{Text: line, Count: 1})
	}
	return out
}

// isTestFailureLine matches test-framework failure markers such as
// "FAILED tests/x.py::test_a" from pytest's short summary.
func isTestFailureLine(line string) bool {
	return strings.HasPrefix(line, "FAILED ") || strings.HasPrefix(line, "FAIL: ")
}

// isErrorLine matches common error prefixes and the job-failed exit marker
// GitLab appends at the end of a failed trace.
func isErrorLine(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range []string{"error:", "error ", "fatal:", "panic:", "exception:", "traceback"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if strings.Contains(lower, "job failed") {
		return true
	}
	return strings.HasPrefix(lower, "exit status ") && !strings.HasPrefix(lower, "exit status 0")
}
