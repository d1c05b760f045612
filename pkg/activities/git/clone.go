package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// SourcesDir is where CloneSources places the checkout inside a run directory.
const SourcesDir = "src"

// CloneSources shallow-clones the app bundle sources into <runDir>/src and
// returns that path. runDir must already exist; it is never created here.
func CloneSources(ctx context.Context, repoURL, ref, runDir string) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("CloneSources started", "repo", repoURL, "ref", ref, "runDir", runDir)

	info, err := os.Stat(runDir)
	if err != nil {
		return "", temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("run directory unavailable: %v", err), "RunDirMissing", err)
	}
	if !info.IsDir() {
		return "", temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("run directory %s is not a directory", runDir), "RunDirMissing", nil)
	}

	workDir := filepath.Join(runDir, SourcesDir)

	// A retried attempt may have left a partial checkout behind.
	if _, err := os.Lstat(workDir); err == nil {
		logger.Info("Removing existing sources directory", "workDir", workDir)
		if err := os.RemoveAll(workDir); err != nil {
			return "", fmt.Errorf("failed to remove existing sources: %w", err)
		}
	}

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", repoURL, workDir)

	// GIT_CONFIG_GLOBAL=/dev/null keeps URL rewrites from the host config out,
	// GIT_TERMINAL_PROMPT=0 stops git from waiting on credentials.
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git clone failed: %v: %s", err, string(output))
	}

	logger.Info("Git clone successful", "workDir", workDir)
	return workDir, nil
}
