package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/containifyci/analysis-worker/pkg/config"
	"github.com/containifyci/analysis-worker/pkg/logging"
	"github.com/containifyci/analysis-worker/pkg/rundir"
	"github.com/containifyci/analysis-worker/pkg/workflows/analysis"
)

type runFlags struct {
	base     string
	prefix   string
	tag      string
	unique   bool
	linkMode string
	strategy string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.base, "base", rundir.DefaultBase, "base directory holding run directories and the latest link")
	cmd.Flags().StringVar(&f.prefix, "prefix", "run", "run directory name prefix")
	cmd.Flags().StringVar(&f.tag, "tag", "", "run tag, e.g. a bundle size (default: current UTC timestamp)")
	cmd.Flags().BoolVar(&f.unique, "unique", false, "append a random suffix to the run directory name")
}

func (f *runFlags) resolvedTag() string {
	if f.tag == "" {
		return rundir.TimestampTag(time.Now())
	}
	return f.tag
}

func (f *runFlags) manager(cmd *cobra.Command) (*rundir.Manager, error) {
	mode, err := rundir.ParseLinkMode(f.linkMode)
	if err != nil {
		return nil, err
	}
	strategy, err := rundir.ParseStrategy(f.strategy)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logLevel(cmd))
	return rundir.New(
		rundir.WithLinkMode(mode),
		rundir.WithStrategy(strategy),
		rundir.WithUniqueSuffix(f.unique),
		rundir.WithLogger(logger),
	), nil
}

func logLevel(cmd *cobra.Command) string {
	level, _ := cmd.Flags().GetString("log-level")
	return level
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "analysis-client",
		Short:         "Manage analysis run directories and submit analysis jobs",
		Version:       fmt.Sprintf("%s, commit %s, built at %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newCreateCmd(), newLatestCmd(), newPruneCmd(), newSubmitCmd())
	return root
}

func newCreateCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a fresh run directory and point latest at it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := f.manager(cmd)
			if err != nil {
				return err
			}
			output, err := m.Create(f.base, f.prefix, f.resolvedTag())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.linkMode, "link-mode", "auto", "latest pointer kind: auto, symlink or pointer")
	cmd.Flags().StringVar(&f.strategy, "strategy", "staged", "replacement strategy: staged or in-place")
	return cmd
}

func newLatestCmd() *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the run directory latest points at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := rundir.ResolveLatest(base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", rundir.DefaultBase, "base directory")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var (
		f    runFlags
		keep int
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove all but the newest run directories of a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := f.manager(cmd)
			if err != nil {
				return err
			}
			removed, err := m.Prune(f.base, f.prefix, keep)
			for _, path := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&f.base, "base", rundir.DefaultBase, "base directory")
	cmd.Flags().StringVar(&f.prefix, "prefix", "run", "run directory name prefix")
	cmd.Flags().IntVar(&keep, "keep", 5, "number of run directories to keep, including latest")
	return cmd
}

type submitFlags struct {
	runFlags
	repo       string
	ref        string
	analyzer   string
	outdirFlag string
	env        map[string]string
	keep       int
	host       string
	namespace  string
	taskQueue  string
}

func (f *submitFlags) job(args []string) analysis.AnalysisJob {
	return analysis.AnalysisJob{
		Base:          f.base,
		Prefix:        f.prefix,
		Tag:           f.resolvedTag(),
		Unique:        f.unique,
		SourceRepoURL: f.repo,
		SourceRef:     f.ref,
		Analyzer:      f.analyzer,
		Args:          args,
		OutdirFlag:    f.outdirFlag,
		Env:           f.env,
		Keep:          f.keep,
	}
}

func newSubmitCmd() *cobra.Command {
	f := submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit [flags] -- [analyzer args]",
		Short: "Queue an analysis job on the worker responsible for the base directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := analysis.CheckBase(f.base); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if f.host == "" {
				f.host = cfg.TemporalHost
			}
			if f.namespace == "" {
				f.namespace = cfg.TemporalNamespace
			}
			if f.taskQueue == "" {
				f.taskQueue = cfg.TaskQueue
			}
			return submit(cmd, f, args)
		},
	}
	f.register(cmd)
	cmd.Flags().Lookup("base").Usage = "absolute base directory on the worker"
	cmd.Flags().StringVar(&f.repo, "repo", "", "git repository with the app bundle sources")
	cmd.Flags().StringVar(&f.ref, "ref", "", "branch or tag of --repo")
	cmd.Flags().StringVar(&f.analyzer, "analyzer", "", "analyzer binary on the worker")
	cmd.Flags().StringVar(&f.outdirFlag, "outdir-flag", "--outdir", "flag used to pass the run directory to the analyzer, empty to omit")
	cmd.Flags().StringToStringVar(&f.env, "env", map[string]string{}, "extra analyzer environment (KEY=VALUE)")
	cmd.Flags().IntVar(&f.keep, "keep", 0, "prune to this many runs after a successful analysis (0 keeps all)")
	cmd.Flags().StringVar(&f.host, "host", "", "Temporal host:port (default $TEMPORAL_HOST)")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "Temporal namespace (default $TEMPORAL_NAMESPACE)")
	cmd.Flags().StringVar(&f.taskQueue, "task-queue", "", "task queue (default $ANALYSIS_TASK_QUEUE)")
	_ = cmd.MarkFlagRequired("analyzer")
	return cmd
}

func submit(cmd *cobra.Command, f submitFlags, args []string) error {
	logger := logging.New(logLevel(cmd))

	// The client is a heavyweight object that should be created once per process.
	c, err := client.Dial(client.Options{
		Logger:    log.NewStructuredLogger(logger),
		HostPort:  f.host,
		Namespace: f.namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create client: %w", err)
	}
	defer c.Close()

	job := f.job(args)
	workflowOptions := client.StartWorkflowOptions{
		ID:                       analysis.WorkflowID(job.Base),
		TaskQueue:                f.taskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	we, err := c.SignalWithStartWorkflow(ctx, workflowOptions.ID, analysis.AnalysisSignal, job, workflowOptions, analysis.AnalysisQueueWorkflow)
	if err != nil {
		return fmt.Errorf("unable to submit job: %w", err)
	}

	logger.Info("Analysis job queued", "workflowID", we.GetID(), "runID", we.GetRunID(), "tag", job.Tag)
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s_%s on %s\n", job.Prefix, job.Tag, we.GetID())
	return nil
}
