package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// DetectProject reads the .git/config in the given directory and returns
// the project path ("group/name") from the origin remote URL. Used to
// default GITLAB_PROJECT when it is not configured.
func DetectProject(dir string) (domain.Project, error) {
	configPath := filepath.Join(dir, ".git", "config")
	f, err := os.Open(configPath)
	if err != nil {
		return domain.Project{}, fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteURL(strings.TrimSpace(parts[1]))
			}
		}
	}
	return domain.Project{}, errors.New("no origin remote found in .git/config")
}

// ParseRemoteURL parses a git remote URL into a project path. Supports
// HTTPS (https://gitlab.com/group/name.git) and SSH
// (git@gitlab.com:group/name.git); subgroups are preserved.
func ParseRemoteURL(rawURL string) (domain.Project, error) {
	normalized := strings.TrimSuffix(rawURL, ".git")

	if strings.HasPrefix(normalized, "git@") {
		trimmed := strings.TrimPrefix(normalized, "git@")
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 || !strings.Contains(parts[1], "/") {
			return domain.Project{}, fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		return domain.Project{Path: parts[1]}, nil
	}

	if strings.HasPrefix(normalized, "https://") || strings.HasPrefix(normalized, "http://") {
		withoutScheme := strings.TrimPrefix(normalized, "https://")
		withoutScheme = strings.TrimPrefix(withoutScheme, "http://")
		parts := strings.SplitN(withoutScheme, "/", 2)
		if len(parts) != 2 || !strings.Contains(parts[1], "/") {
			return domain.Project{}, fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
		}
		return domain.Project{Path: parts[1]}, nil
	}

	return domain.Project{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
}
