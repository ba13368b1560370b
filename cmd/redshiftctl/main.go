// Command redshiftctl sets the color temperature of the connected displays
// using gamma ramps, one-shot, like a stripped-down redshift. It supports
// X11 (RandR) and Wayland compositors implementing
// wlr-gamma-control-unstable-v1.
//
// Exit codes: 0 on success (including when no outputs are connected), 1 on
// invalid usage, 2 when no display backend is available or the connection
// fails, and 3 when at least one output refused the ramp.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pgaskin/redshiftctl/colorramp"
	"github.com/pgaskin/redshiftctl/gamma"
)

const (
	exitUsage   = 1
	exitConnect = 2
	exitPartial = 3
)

func main() {
	flags := pflag.NewFlagSet("redshiftctl", pflag.ContinueOnError)
	var (
		temperature = flags.IntP("set", "S", int(colorramp.Neutral), "set the color temperature, in kelvins")
		reset       = flags.BoolP("reset", "x", false, "restore the neutral gamma ramps")
		brightness  = flags.Float64P("brightness", "b", 1, "brightness multiplier")
		method      = flags.StringP("method", "m", "", "force a backend (x11|wayland|dummy) instead of detecting one")
		display     = flags.StringP("display", "d", "", "display or socket name (default: from the environment)")
		hold        = flags.BoolP("hold", "H", false, "keep the connection open until interrupted (required for the change to persist on wayland)")
		verbose     = flags.BoolP("verbose", "v", false, "enable debug logging")
		version     = flags.BoolP("version", "V", false, "show the version and exit")
	)
	flags.SortFlags = false
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitUsage)
	}

	if *version {
		v := "(devel)"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v = info.Main.Version
		}
		fmt.Println("redshiftctl", v)
		return
	}

	if *reset && flags.Changed("set") {
		fmt.Fprintln(os.Stderr, "error: --reset cannot be used with --set")
		os.Exit(exitUsage)
	}
	if t := colorramp.Temperature(*temperature); t < colorramp.Min || t > colorramp.Max {
		fmt.Fprintf(os.Stderr, "error: temperature must be between %d and %d (was %d)\n", colorramp.Min, colorramp.Max, t)
		os.Exit(exitUsage)
	}
	if *brightness < 0.1 || *brightness > 1 {
		fmt.Fprintf(os.Stderr, "error: brightness must be between 0.1 and 1.0 (was %g)\n", *brightness)
		os.Exit(exitUsage)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	var white colorramp.WhitePoint
	if *reset {
		white = colorramp.WhitePoint{1, 1, 1}
	} else {
		white, _ = colorramp.GetWhitePoint(colorramp.Temperature(*temperature))
		white = white.Scale(*brightness)
	}
	logger.Debug("computed white point", "red", white[0], "green", white[1], "blue", white[2])

	conn, err := gamma.Open(*method, *display, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitConnect)
	}
	defer conn.Close()

	report, err := gamma.Set(conn, white)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		conn.Close()
		os.Exit(exitConnect)
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "applied to %d output(s), %d failed:\n", report.Applied, len(report.Failed))
		for _, failure := range report.Failed {
			fmt.Fprintln(os.Stderr, " ", failure.Error())
		}
		conn.Close()
		os.Exit(exitPartial)
	}
	if report.Applied == 0 {
		logger.Info("no outputs connected, nothing to do")
	}

	if *hold {
		var fatal <-chan error
		if w, ok := conn.(gamma.Waiter); ok {
			fatal = w.Wait()
		}
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		logger.Debug("holding connection open")
		select {
		case s := <-sig:
			logger.Debug("interrupted", "signal", s)
		case err := <-fatal:
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(exitConnect)
			}
		}
	}
}
