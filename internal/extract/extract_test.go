package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestExtractPrefersTestFailureMarkers(t *testing.T) {
	log := strings.Join([]string{
		"collecting tests...",
		"error: flaky network warning",
		"FAILED tests/test_api.py::test_login",
		"FAILED tests/test_api.py::test_logout",
		"ERROR: Job failed: exit code 1",
	}, "\n")

	lines := Extract(log)
	want := []Line{
		{Text: "FAILED tests/test_api.py::test_login", Count: 1},
		{Text: "FAILED tests/test_api.py::test_logout", Count: 1},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Extract() = %v, want %v", lines, want)
	}
}

func TestExtractFallsBackToErrorLines(t *testing.T) {
	log := strings.Join([]string{
		"$ make build",
		"error: undefined reference to foo",
		"compilation aborted",
		"ERROR: Job failed: exit code 2",
	}, "\n")

	lines := Extract(log)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0].Text != "error: undefined reference to foo" {
		t.Errorf("first line = %q", lines[0].Text)
	}
	if lines[1].Text != "ERROR: Job failed: exit code 2" {
		t.Errorf("second line = %q", lines[1].Text)
	}
}

func TestExtractCollapsesConsecutiveDuplicates(t *testing.T) {
	log := strings.Join([]string{
		"FAILED tests/test_db.py::test_conn",
		"FAILED tests/test_db.py::test_conn",
		"ok tests/test_db.py::test_other",
		"FAILED tests/test_db.py::test_conn",
	}, "\n")

	lines := Extract(log)
	want := []Line{
		{Text: "FAILED tests/test_db.py::test_conn", Count: 2},
		{Text: "FAILED tests/test_db.py::test_conn", Count: 1},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Extract() = %v, want %v", lines, want)
	}
}

func TestExtractCapsDistinctLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "FAILED tests/test_%d.py::test_case\n", i)
	}
	lines := Extract(b.String())
	if len(lines) != maxLines {
		t.Errorf("got %d lines, want %d", len(lines), maxLines)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	log := "error: one\nerror: two\nfatal: three\n"
	first := Extract(log)
	for i := 0; i < 5; i++ {
		if got := Extract(log); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestExtractEmptyAndCleanLogs(t *testing.T) {
	for _, log := range []string{"", "all good\nbuild succeeded\n", "exit status 0"} {
		if lines := Extract(log); len(lines) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", log, lines)
		}
	}
}

func TestExtractRecognizesExitStatus(t *testing.T) {
	lines := Extract("make: *** [all] Error 2\nexit status 2\n")
	if len(lines) != 1 || lines[0].Text != "exit status 2" {
		t.Errorf("Extract() = %v, want the exit status line", lines)
	}
}

func TestSummarizeTagsJobID(t *testing.T) {
	s := Summarize(42, "panic: runtime error\n")
	if s.JobID != 42 {
		t.Errorf("JobID = %d, want 42", s.JobID)
	}
	if len(s.Lines) != 1 {
		t.Errorf("Lines = %v, want one entry", s.Lines)
	}
}
