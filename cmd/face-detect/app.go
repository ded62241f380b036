package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prashanthag/deepstream-face-detection/internal/dsapp"
)

func appCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("app", flag.ContinueOnError)
	fs.SetOutput(stderr)
	preset := fs.String("preset", "sample", "Config preset: sample (bundled USB config), usb (generated)")
	binary := fs.String("binary", dsapp.DefaultBinary, "deepstream-app executable")
	workdir := fs.String("workdir", dsapp.DeepStreamRoot, "Working directory for deepstream-app")
	device := fs.Int("device-node", 0, "N in /dev/videoN (usb preset)")
	keep := fs.Bool("keep-config", false, "Keep the generated config file (usb preset)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageErr("%v", err)
	}
	setupLogging(stderr, *debug, false)

	var configPath string
	switch *preset {
	case "sample":
		configPath = dsapp.SampleConfig
	case "usb":
		opts := dsapp.DefaultUSBOptions()
		opts.DeviceNode = *device

		path, err := dsapp.WriteTemp(dsapp.USBCameraConfig(opts))
		if err != nil {
			return err
		}
		if !*keep {
			defer os.Remove(path)
		}
		fmt.Fprintf(stdout, "Created config file: %s\n", path)
		configPath = path
	default:
		return usageErr("unknown preset %q (must be sample or usb)", *preset)
	}

	ro := dsapp.RunOptions{
		Binary:     *binary,
		ConfigPath: configPath,
		WorkDir:    *workdir,
		Stdout:     stdout,
		Stderr:     stderr,
	}
	fmt.Fprintf(stdout, "Running: %v\n", ro.Command())
	fmt.Fprintln(stdout, "Press Ctrl+C to stop...")

	res, err := dsapp.Run(ctx, ro)
	if err != nil {
		return err
	}
	if res.Interrupted {
		fmt.Fprintln(stdout, "DeepStream app stopped by user")
		return nil
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("deepstream-app exited with code %d", res.ExitCode)
	}
	return nil
}
