package dsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// DefaultBinary is the reference application executable
const DefaultBinary = "deepstream-app"

// RunOptions configures a deepstream-app invocation
type RunOptions struct {
	Binary     string
	ConfigPath string
	WorkDir    string
	// Stdout and Stderr default to the parent's
	Stdout io.Writer
	Stderr io.Writer
	// GracePeriod is how long to wait after SIGINT before killing (default 5s)
	GracePeriod time.Duration
}

// Result describes how the process ended
type Result struct {
	ExitCode    int
	Interrupted bool
	Duration    time.Duration
}

// Command returns the argv that Run executes
func (o RunOptions) Command() []string {
	bin := o.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return []string{bin, "-c", o.ConfigPath}
}

// Run executes deepstream-app and waits for it.
//
// Cancelling ctx sends SIGINT so the app can tear its pipeline down; the
// process is killed after GracePeriod. An interrupted run is not an error.
// A non-zero exit is reported through Result.ExitCode, not err.
func Run(ctx context.Context, o RunOptions) (Result, error) {
	if o.ConfigPath == "" {
		return Result{ExitCode: 1}, fmt.Errorf("config path is required")
	}
	if o.WorkDir == "" {
		o.WorkDir = DeepStreamRoot
	}
	if o.GracePeriod == 0 {
		o.GracePeriod = 5 * time.Second
	}

	argv := o.Command()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = o.WorkDir
	cmd.Stdout = o.Stdout
	cmd.Stderr = o.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
	cmd.WaitDelay = o.GracePeriod

	slog.Info("face-detection: starting deepstream-app",
		"command", argv,
		"workdir", o.WorkDir,
	)

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start)}

	if ctx.Err() != nil {
		res.Interrupted = true
		slog.Info("face-detection: deepstream-app stopped by user", "duration", res.Duration)
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		slog.Warn("face-detection: deepstream-app exited", "exit_code", res.ExitCode)
		return res, nil
	default:
		res.ExitCode = 1
		return res, fmt.Errorf("error running deepstream-app: %w", err)
	}
}
