// pipewatch is a GitLab CI companion: one-shot commands for querying
// pipelines, jobs and merge requests, plus an interactive monitor.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/beardedgiant/pipewatch/internal/browser"
	"github.com/beardedgiant/pipewatch/internal/cache"
	"github.com/beardedgiant/pipewatch/internal/cli"
	"github.com/beardedgiant/pipewatch/internal/config"
	"github.com/beardedgiant/pipewatch/internal/domain"
	"github.com/beardedgiant/pipewatch/internal/git"
	"github.com/beardedgiant/pipewatch/internal/gitlab"
	"github.com/beardedgiant/pipewatch/internal/logging"
	"github.com/beardedgiant/pipewatch/internal/refresh"
	"github.com/beardedgiant/pipewatch/internal/source"
	"github.com/beardedgiant/pipewatch/internal/tui"
)

const usage = `Usage: pipewatch <command> [flags]

Commands:
  monitor          interactive pipeline monitor (default)
  branch <name>    list merge requests for a branch
  mr <iid>         list pipelines of a merge request
  status <id>      show the job status summary of a pipeline
  jobs <id>        list the jobs of a pipeline
  failures <id>    show the failure summary of a job
  batch-failures <id>...
                   show failure summaries for several jobs
  config           show or update the config file

Configuration comes from ~/.config/pipewatch/config.toml, overridden by
GITLAB_URL, GITLAB_TOKEN, GITLAB_PROJECT and GITLAB_REFRESH_INTERVAL.
`

func main() {
	// A .env in the working directory is a convenience for local use; its
	// absence is not an error.
	_ = godotenv.Load()

	args := os.Args[1:]
	command := "monitor"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	if command == "help" || command == "-h" || command == "--help" {
		fmt.Print(usage)
		return
	}

	cfg, err := config.LoadFrom(config.DefaultConfigPath())
	if err != nil {
		fatal("loading config: %v", err)
	}

	if command == "config" {
		runConfig(cfg, args)
		return
	}

	if cfg.GitLab.Project == "" {
		if project, err := git.DetectProject("."); err == nil {
			cfg.GitLab.Project = project.Path
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}

	client := gitlab.NewClient(cfg.GitLab.Token, cfg.GitLab.URL, domain.Project{Path: cfg.GitLab.Project}, cfg.MaxPipelinesOrDefault())
	links := browser.Links{BaseURL: client.BaseURL(), Project: cfg.GitLab.Project}

	switch command {
	case "monitor":
		runMonitor(cfg, client, links)
	default:
		runOneShot(command, args, client, links)
	}
}

// runMonitor starts the interactive TUI. Logs go to a file because the
// monitor owns the terminal; cache failures degrade to memory-only.
func runMonitor(cfg config.Config, client *gitlab.Client, links browser.Links) {
	log, closeLog, err := logging.ToFile(config.DefaultLogPath(), slog.LevelInfo)
	if err != nil {
		log = logging.Discard()
	} else {
		defer closeLog()
	}

	mem := cache.New()
	disk, err := cache.OpenStore(config.DefaultCachePath())
	if err != nil {
		log.Warn("persistent cache unavailable, running memory-only", "err", err)
		disk = nil
	} else {
		defer disk.Close()
	}

	cached := cache.NewReader(client, mem, disk, log)
	coord := refresh.New(cfg.RefreshIntervalOrDefault())
	tui.Run(source.New(cached), coord, cached, links, log)
}

// runOneShot dispatches the non-interactive commands. They share a caching
// reader so repeated queries against finished work stay off the network.
func runOneShot(command string, args []string, client *gitlab.Client, links browser.Links) {
	log := logging.ToStderr(slog.LevelWarn)

	mem := cache.New()
	disk, err := cache.OpenStore(config.DefaultCachePath())
	if err != nil {
		log.Warn("persistent cache unavailable, running memory-only", "err", err)
		disk = nil
	} else {
		defer disk.Close()
	}

	app := &cli.App{
		Reader: cache.NewReader(client, mem, disk, log),
		Links:  links,
		Out:    os.Stdout,
		Log:    log,
	}

	switch command {
	case "branch":
		fs := flag.NewFlagSet("branch", flag.ExitOnError)
		state := fs.String("state", "opened", "MR state: opened, merged, closed or all")
		latest := fs.Bool("latest", false, "print the latest MR and pipeline after the table")
		fs.Parse(args)
		branch := fs.Arg(0)
		if branch == "" {
			fatal("usage: pipewatch branch <name> [--state S] [--latest]")
		}
		exitOn(app.BranchMRs(branch, *state, *latest))

	case "mr":
		fs := flag.NewFlagSet("mr", flag.ExitOnError)
		latest := fs.Bool("latest", false, "print the latest pipeline after the table")
		fs.Parse(args)
		iid := mustID(fs.Arg(0), "usage: pipewatch mr <iid> [--latest]")
		exitOn(app.MRPipelines(iid, *latest))

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		detailed := fs.Bool("detailed", false, "show every job grouped by stage")
		fs.Parse(args)
		id := mustID(fs.Arg(0), "usage: pipewatch status <pipeline-id> [--detailed]")
		exitOn(app.PipelineStatus(id, *detailed))

	case "jobs":
		fs := flag.NewFlagSet("jobs", flag.ExitOnError)
		status := fs.String("status", "", "only jobs with this status")
		stage := fs.String("stage", "", "only jobs in this stage")
		sortKey := fs.String("sort", "", "sort order: duration, name or created")
		fs.Parse(args)
		id := mustID(fs.Arg(0), "usage: pipewatch jobs <pipeline-id> [--status S] [--stage S] [--sort K]")
		exitOn(app.PipelineJobs(id, *status, *stage, *sortKey))

	case "failures":
		fs := flag.NewFlagSet("failures", flag.ExitOnError)
		verbose := fs.Bool("verbose", false, "dump the full trace after the summary")
		fs.Parse(args)
		id := mustID(fs.Arg(0), "usage: pipewatch failures <job-id> [--verbose]")
		exitOn(app.JobFailures(id, *verbose))

	case "batch-failures":
		if len(args) == 0 {
			fatal("usage: pipewatch batch-failures <job-id>...")
		}
		ids := make([]int, 0, len(args))
		for _, a := range args {
			ids = append(ids, mustID(a, "usage: pipewatch batch-failures <job-id>..."))
		}
		exitOn(app.BatchFailures(ids))

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

// runConfig shows the effective configuration or writes updated values back
// to the config file. The token never reaches disk.
func runConfig(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	show := fs.Bool("show", false, "print the effective configuration")
	gitlabURL := fs.String("gitlab-url", "", "set gitlab.url in the config file")
	project := fs.String("project", "", "set gitlab.project in the config file")
	interval := fs.Int("refresh-interval", 0, "set refresh_interval (seconds) in the config file")
	fs.Parse(args)

	if *show || (*gitlabURL == "" && *project == "" && *interval == 0) {
		fmt.Printf("config file:      %s\n", config.DefaultConfigPath())
		fmt.Printf("gitlab.url:       %s\n", cfg.GitLab.URL)
		fmt.Printf("gitlab.project:   %s\n", cfg.GitLab.Project)
		fmt.Printf("refresh_interval: %ds\n", int(cfg.RefreshIntervalOrDefault().Seconds()))
		fmt.Printf("max_pipelines:    %d\n", cfg.MaxPipelinesOrDefault())
		if cfg.GitLab.Token != "" {
			fmt.Println("token:            set (from environment)")
		} else {
			fmt.Println("token:            not set")
		}
		return
	}

	if *gitlabURL != "" {
		cfg.GitLab.URL = *gitlabURL
	}
	if *project != "" {
		cfg.GitLab.Project = *project
	}
	if *interval > 0 {
		cfg.RefreshInterval = *interval
	}
	if err := config.Save(config.DefaultConfigPath(), cfg); err != nil {
		fatal("saving config: %v", err)
	}
	fmt.Printf("wrote %s\n", config.DefaultConfigPath())
}

func mustID(arg, usageLine string) int {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		fatal("%s", usageLine)
	}
	return id
}

func exitOn(err error) {
	if err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pipewatch: "+format+"\n", args...)
	os.Exit(1)
}
