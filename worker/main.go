package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/containifyci/go-self-update/pkg/systemd"
	"github.com/containifyci/go-self-update/pkg/updater"

	"github.com/containifyci/analysis-worker/pkg/activities/filesystem"
	"github.com/containifyci/analysis-worker/pkg/activities/git"
	"github.com/containifyci/analysis-worker/pkg/config"
	"github.com/containifyci/analysis-worker/pkg/logging"
	"github.com/containifyci/analysis-worker/pkg/rundir"
	"github.com/containifyci/analysis-worker/pkg/workflows/analysis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	fmt.Printf("analysis-worker %s, commit %s, built at %s\n", version, commit, date)
	// Check for command-line arguments
	command := "start"
	if len(os.Args) >= 2 {
		command = os.Args[1]
	}

	// Get the command
	switch command {
	case "update":
		u := updater.NewUpdater(
			"analysis-worker", "containifyci", "analysis-worker", version,
			updater.WithUpdateHook(systemd.SystemdRestartHook("analysis-worker")),
		)
		updated, err := u.SelfUpdate()
		if err != nil {
			fmt.Printf("Update failed %+v\n", err)
			os.Exit(1)
		}
		if updated {
			fmt.Println("Update completed successfully!")
			return
		}
		fmt.Println("Already up-to-date")
	default:
		start()
	}
}

func start() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)
	logger.Info("Starting analysis worker", "queue", cfg.TaskQueue, "host", cfg.TemporalHost)

	if _, err := exec.LookPath("git"); err != nil {
		logger.Warn("git not found in PATH, jobs with sources will fail", "error", err)
	}

	c, err := client.Dial(client.Options{
		Logger:    log.NewStructuredLogger(logger),
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Error("Unable to create client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxConcurrentWorkflows,
		MaxConcurrentActivityExecutionSize:     cfg.MaxConcurrentActivities,
		StickyScheduleToStartTimeout:           10 * time.Minute,
	})

	logger.Info("Worker configuration",
		"maxConcurrentWorkflows", cfg.MaxConcurrentWorkflows,
		"maxConcurrentActivities", cfg.MaxConcurrentActivities,
		"linkMode", cfg.LinkMode,
		"strategy", cfg.Strategy)

	manager := rundir.New(append(cfg.RunDirOptions(), rundir.WithLogger(logger.With("component", "rundir")))...)

	w.RegisterWorkflow(analysis.AnalysisQueueWorkflow)
	w.RegisterActivity(filesystem.NewActivities(manager))
	w.RegisterActivity(git.CloneSources)
	w.RegisterActivity(analysis.RunAnalyzer)

	logger.Info("Registered analysis workflows and activities")

	err = w.Run(worker.InterruptCh())
	if err != nil {
		logger.Error("Unable to start worker", "error", err)
		os.Exit(1)
	}
}
