package gamma

import (
	"log/slog"

	"github.com/pgaskin/redshiftctl/colorramp"
)

// dummyConn logs what would be applied without touching any display. It
// reports a single output with no advertised ramp size.
type dummyConn struct {
	logger *slog.Logger
}

type dummyOutput struct{}

func (dummyOutput) String() string {
	return "dummy output"
}

func openDummy(logger *slog.Logger) (Conn, error) {
	logger.Warn("using dummy gamma method, display will not be affected")
	return &dummyConn{logger: logger}, nil
}

func (c *dummyConn) Outputs() ([]Output, error) {
	return []Output{dummyOutput{}}, nil
}

func (c *dummyConn) RampSize(Output) (int, error) {
	return 0, nil
}

func (c *dummyConn) Apply(output Output, ramp colorramp.Ramp) error {
	size := len(ramp.Red)
	c.logger.Info("dummy: would apply ramp", "output", output.String(), "size", size,
		"red", ramp.Red[size-1], "green", ramp.Green[size-1], "blue", ramp.Blue[size-1])
	return nil
}

func (c *dummyConn) Close() error {
	return nil
}
