// Package gamma applies color ramps to display outputs. It abstracts over
// display server protocols (X11 RandR and the wlr-gamma-control protocol)
// behind a single connection interface, with exactly one backend active per
// connection.
package gamma

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pgaskin/redshiftctl/colorramp"
)

// DefaultRampSize is the ramp size used when a backend does not advertise
// one for an output. It matches the conventional X11 gamma table size.
const DefaultRampSize = 256

// ErrNoBackend is returned by [Open] when no display session can be detected
// from the environment.
var ErrNoBackend = errors.New("no supported display server session found")

// Output identifies a single display sink (CRTC or output) enumerated by a
// backend. Handles are only meaningful for the connection which returned
// them, and only until it is closed.
type Output interface {
	fmt.Stringer
}

// Conn is an open session with a display server's gamma control mechanism.
// It is not safe for concurrent use.
type Conn interface {
	// Outputs enumerates the currently addressable outputs. An empty slice
	// is not an error.
	Outputs() ([]Output, error)

	// RampSize returns the ramp length advertised for the output, or 0 if
	// the backend does not advertise one.
	RampSize(Output) (int, error)

	// Apply writes the ramp to the output. Errors are specific to the
	// output and do not invalidate the connection.
	Apply(Output, colorramp.Ramp) error

	// Close releases the connection. Whether applied ramps persist after
	// close is backend-specific (see [Waiter] for the Wayland caveat).
	Close() error
}

// Waiter is implemented by connections which can fail asynchronously and
// whose applied state lasts only while the connection is held open.
type Waiter interface {
	// Wait returns a channel which receives the fatal error, if any, when
	// the connection dies.
	Wait() <-chan error
}

// Open opens a connection using the named backend method ("x11", "wayland",
// or "dummy"). If method is empty, the backend is chosen from the
// environment: a Wayland session if WAYLAND_DISPLAY is set, an X11 session
// if DISPLAY is set, and [ErrNoBackend] otherwise. display overrides the
// session's default display or socket name. If logger is not nil, it is
// used for debug logs.
func Open(method, display string, logger *slog.Logger) (Conn, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if method == "" {
		switch {
		case os.Getenv("WAYLAND_DISPLAY") != "":
			method = "wayland"
		case os.Getenv("DISPLAY") != "":
			method = "x11"
		default:
			return nil, ErrNoBackend
		}
		logger.Debug("selected backend from environment", "method", method)
	}
	switch method {
	case "x11":
		return openX11(display, logger)
	case "wayland":
		return openWayland(display, logger)
	case "dummy":
		return openDummy(logger)
	default:
		return nil, fmt.Errorf("unknown gamma method %q", method)
	}
}

// OutputError records the failure of a single output.
type OutputError struct {
	Output Output
	Err    error
}

func (e OutputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Output, e.Err)
}

func (e OutputError) Unwrap() error {
	return e.Err
}

// Report summarizes one [Set] call.
type Report struct {
	// Applied is the number of outputs which accepted the ramp.
	Applied int

	// Failed contains one entry for each output which did not.
	Failed []OutputError
}

// Set builds the ramp for the white point and applies it to every output on
// the connection, sized per output. A failing output is recorded and
// skipped, never aborting the remaining outputs; only enumeration itself can
// fail. An empty output set yields an empty Report and no error.
func Set(conn Conn, white colorramp.WhitePoint) (Report, error) {
	outputs, err := conn.Outputs()
	if err != nil {
		return Report{}, fmt.Errorf("list outputs: %w", err)
	}
	var report Report
	for _, output := range outputs {
		size, err := conn.RampSize(output)
		if err != nil {
			report.Failed = append(report.Failed, OutputError{output, fmt.Errorf("get ramp size: %w", err)})
			continue
		}
		if size <= 0 {
			size = DefaultRampSize
		}
		if err := conn.Apply(output, colorramp.NewRamp(size, white)); err != nil {
			report.Failed = append(report.Failed, OutputError{output, err})
			continue
		}
		report.Applied++
	}
	return report, nil
}
