// Package browser computes web URLs for GitLab resources and opens them in
// the system browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Links builds web URLs from the instance base URL and project path.
type Links struct {
	BaseURL string
	Project string
}

func (l Links) root() string {
	return strings.TrimSuffix(l.BaseURL, "/") + "/" + l.Project
}

// Pipeline returns the web URL of a pipeline.
func (l Links) Pipeline(id int) string {
	return fmt.Sprintf("%s/-/pipelines/%d", l.root(), id)
}

// Job returns the web URL of a job.
func (l Links) Job(id int) string {
	return fmt.Sprintf("%s/-/jobs/%d", l.root(), id)
}

// MergeRequest returns the web URL of a merge request by iid.
func (l Links) MergeRequest(iid int) string {
	return fmt.Sprintf("%s/-/merge_requests/%d", l.root(), iid)
}

// Open launches the system browser on the given URL. The command runs
// detached; failures to start are returned, failures after start are not
// observed.
func Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
