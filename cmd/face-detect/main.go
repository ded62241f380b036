package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Version information
const version = "v0.1.0"

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors that should print usage and exit 2
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	ctx, stop := signalContext()
	defer stop()

	var err error
	switch args[0] {
	case "run":
		err = runCmd(ctx, args[1:], stdout, stderr)
	case "app":
		err = appCmd(ctx, args[1:], stdout, stderr)
	case "check":
		err = checkCmd(ctx, args[1:], stdout, stderr)
	case "version", "--version", "-version":
		fmt.Fprintf(stdout, "face-detect %s\n", version)
		return exitOK
	case "help", "--help", "-h":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		slog.Error("face-detection: command failed", "command", args[0], "error", err)
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "face-detect %s - DeepStream face detection\n\n", version)
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  face-detect run   [--config file] [--profile name] [--device /dev/videoN] [--sink fake|display|udp]\n")
	fmt.Fprintf(w, "                    [--source camera|test] [--probe-mode count|metadata|auto] [--dry-run] [--debug] [--json]\n")
	fmt.Fprintf(w, "  face-detect app   [--preset sample|usb] [--binary deepstream-app] [--workdir dir] [--keep-config]\n")
	fmt.Fprintf(w, "  face-detect check [--devices /dev/video0,/dev/video1,/dev/video2] [--profile name]\n")
	fmt.Fprintf(w, "  face-detect check --camera [--device /dev/videoN] [--display] [--dump] [--duration 30s] [--dry-run]\n")
	fmt.Fprintf(w, "  face-detect version\n")
}

// setupLogging installs the default slog logger on stderr, keeping stdout for detections
func setupLogging(stderr io.Writer, debug, jsonOut bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(stderr, opts)
	if jsonOut {
		handler = slog.NewJSONHandler(stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("face-detection: received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// usageErr wraps a message as a usage error
func usageErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
