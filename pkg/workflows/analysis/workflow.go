package analysis

import (
	"time"

	"github.com/containifyci/analysis-worker/pkg/activities/filesystem"
	"github.com/containifyci/analysis-worker/pkg/activities/git"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IdleTimeout is how long the queue workflow waits for a job before exiting.
var IdleTimeout = 1 * time.Minute

// AnalysisQueueWorkflow runs analysis jobs for a single base directory
// sequentially. It uses signals to queue jobs and exits after an idle timeout.
func AnalysisQueueWorkflow(ctx workflow.Context) error {
	var fsActs *filesystem.Activities
	logger := workflow.GetLogger(ctx)
	logger.Info("Started analysis queue workflow")

	var lastRun string
	if err := workflow.SetQueryHandler(ctx, LastRunQuery, func() (string, error) {
		return lastRun, nil
	}); err != nil {
		return err
	}

	// Signal channel for incoming jobs
	signalCh := workflow.GetSignalChannel(ctx, AnalysisSignal)
	var jobQueue []AnalysisJob

	// Run directory setup either works quickly or fails for good.
	setupCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
		StartToCloseTimeout: 5 * time.Minute,
	})

	analyzerCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.5,
			MaximumInterval:    10 * time.Minute,
			MaximumAttempts:    2,
		},
		StartToCloseTimeout: 45 * time.Minute,
	})

	for {
		// Setup a timer for the idle timeout
		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timerFuture := workflow.NewTimer(timerCtx, IdleTimeout)

		// Wait for a signal or timeout
		selector := workflow.NewSelector(timerCtx)
		selector.AddReceive(signalCh, func(c workflow.ReceiveChannel, more bool) {
			var job AnalysisJob
			c.Receive(ctx, &job)
			jobQueue = append(jobQueue, job)
			logger.Info("Received analysis job", "base", job.Base, "prefix", job.Prefix, "tag", job.Tag, "queueSize", len(jobQueue))
			// Reset idle timer since we received a job
			cancelTimer()
		})

		// Listen for timeout
		selector.AddFuture(timerFuture, func(f workflow.Future) {
			logger.Info("No analysis job received within timeout, exiting workflow.")
		})

		selector.Select(ctx)

		// If the timer fired (no jobs received), exit workflow
		if len(jobQueue) == 0 {
			logger.Info("Shutting down workflow due to inactivity.")
			cancelTimer()
			return nil
		}

		// Drain signals that arrived together so they keep their order.
		for {
			var job AnalysisJob
			if !signalCh.ReceiveAsync(&job) {
				break
			}
			jobQueue = append(jobQueue, job)
		}

		for len(jobQueue) > 0 {
			job := jobQueue[0]
			jobQueue = jobQueue[1:] // Dequeue

			logger.Info("Analysis job started", "base", job.Base, "prefix", job.Prefix, "tag", job.Tag)

			// Step 1: Fresh run directory, latest repointed
			var runDir string
			err := workflow.ExecuteActivity(setupCtx, fsActs.CreateRunDirectory, filesystem.CreateRunInput{
				Base:   job.Base,
				Prefix: job.Prefix,
				Tag:    job.Tag,
				Unique: job.Unique,
			}).Get(ctx, &runDir)
			if err != nil {
				logger.Error("Run directory setup failed, skipping analysis", "base", job.Base, "error", err)
				continue
			}
			lastRun = runDir

			// Step 2: Optional sources
			if job.SourceRepoURL != "" {
				err = workflow.ExecuteActivity(setupCtx, git.CloneSources, job.SourceRepoURL, job.SourceRef, runDir).Get(ctx, nil)
				if err != nil {
					logger.Error("Fetching sources failed", "repo", job.SourceRepoURL, "runDir", runDir, "error", err)
					continue
				}
			}

			// Step 3: Run the analyzer into the run directory
			var details *AnalyzerDetails
			err = workflow.ExecuteActivity(analyzerCtx, RunAnalyzer, RunInput{
				RunDir:     runDir,
				Analyzer:   job.Analyzer,
				Args:       job.Args,
				OutdirFlag: job.OutdirFlag,
				Env:        job.Env,
			}).Get(ctx, &details)
			if err != nil {
				logger.Error("Analyzer execution failed", "runDir", runDir, "error", err)
				continue
			}

			if details.ExitCode != 0 {
				logger.Error("Analyzer failed, keeping all runs for debugging",
					"runDir", runDir,
					"exitCode", details.ExitCode,
					"lastLines", details.LastLines)
				continue
			}

			// Step 4: Retention on success
			if job.Keep > 0 {
				var removed []string
				err = workflow.ExecuteActivity(setupCtx, fsActs.PruneRunDirectories, filesystem.PruneInput{
					Base:   job.Base,
					Prefix: job.Prefix,
					Keep:   job.Keep,
				}).Get(ctx, &removed)
				if err != nil {
					logger.Warn("Prune failed (non-critical)", "base", job.Base, "error", err)
				}
			}

			logger.Info("Analysis job completed", "runDir", runDir, "remainingJobs", len(jobQueue))
		}

		logger.Info("No more analysis jobs, waiting for new signals")
	}
}
