package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
)

const lastLinesCount = 50

// logWriter writes to logger and forwards output
type logWriter struct {
	logger log.Logger
	prefix string
	out    io.Writer
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	// Log the output in real-time
	w.logger.Info(w.prefix, "output", string(p))

	return w.out.Write(p)
}

// RunAnalyzer executes the analyzer binary inside the run directory. Output is
// streamed to the activity logger and to <RunDir>/analyzer.log.
func RunAnalyzer(ctx context.Context, in RunInput) (*AnalyzerDetails, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("RunAnalyzer started", "runDir", in.RunDir, "analyzer", in.Analyzer, "args", in.Args)

	if in.Analyzer == "" {
		return nil, temporal.NewNonRetryableApplicationError("no analyzer configured", "InvalidJob", nil)
	}

	args := append([]string{}, in.Args...)
	if in.OutdirFlag != "" {
		args = append(args, in.OutdirFlag, in.RunDir)
	}

	logPath := filepath.Join(in.RunDir, LogFileName)
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cmd := exec.CommandContext(ctx, in.Analyzer, args...)
	cmd.Dir = in.RunDir

	// Set environment variables
	cmd.Env = os.Environ()
	for k, v := range in.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var outputBuf bytes.Buffer
	writer := &logWriter{
		logger: logger,
		prefix: "[analyzer]",
		out:    io.MultiWriter(&outputBuf, logFile),
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	// Execute and capture output (streams in real-time)
	err = cmd.Run()

	// Determine exit code
	exitCode := 0
	if err != nil {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			// Command failed to execute (binary not found, permission denied, etc.)
			return nil, fmt.Errorf("failed to execute analyzer: %w", err)
		}
		exitCode = exitError.ExitCode()
	}

	details := &AnalyzerDetails{
		ExitCode:  exitCode,
		LastLines: lastLines(outputBuf.String(), lastLinesCount),
		LogFile:   logPath,
	}

	if exitCode != 0 {
		logger.Error("Analyzer execution failed", "exitCode", exitCode, "output", details.LastLines)
	} else {
		logger.Info("Analyzer execution successful", "log", logPath)
	}

	return details, nil
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
