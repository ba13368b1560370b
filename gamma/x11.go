package gamma

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/pgaskin/redshiftctl/colorramp"
)

// Gamma ramps via RandR CRTCs. Requires RandR 1.3 for
// GetScreenResourcesCurrent.
const (
	randrMajor = 1
	randrMinor = 3
)

// xConn applies gamma ramps to X11 CRTCs using the RandR extension.
type xConn struct {
	conn   *xgb.Conn
	root   xproto.Window
	logger *slog.Logger
}

type xOutput randr.Crtc

func (o xOutput) String() string {
	return "crtc " + strconv.FormatUint(uint64(o), 10)
}

func openX11(display string, logger *slog.Logger) (Conn, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: init randr: %w", err)
	}
	version, err := randr.QueryVersion(conn, randrMajor, randrMinor).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: query randr version: %w", err)
	}
	if version.MajorVersion < randrMajor || (version.MajorVersion == randrMajor && version.MinorVersion < randrMinor) {
		conn.Close()
		return nil, fmt.Errorf("x11: unsupported randr version %d.%d (need at least %d.%d)",
			version.MajorVersion, version.MinorVersion, randrMajor, randrMinor)
	}

	logger.Debug("x11: connected", "randr_major", version.MajorVersion, "randr_minor", version.MinorVersion)

	return &xConn{
		conn:   conn,
		root:   xproto.Setup(conn).DefaultScreen(conn).Root,
		logger: logger,
	}, nil
}

func (c *xConn) Outputs() ([]Output, error) {
	resources, err := randr.GetScreenResourcesCurrent(c.conn, c.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("x11: get screen resources: %w", err)
	}
	outputs := make([]Output, 0, len(resources.Crtcs))
	for _, crtc := range resources.Crtcs {
		outputs = append(outputs, xOutput(crtc))
	}
	return outputs, nil
}

func (c *xConn) RampSize(output Output) (int, error) {
	crtc, ok := output.(xOutput)
	if !ok {
		return 0, fmt.Errorf("x11: not an x11 output: %s", output)
	}
	gamma, err := randr.GetCrtcGammaSize(c.conn, randr.Crtc(crtc)).Reply()
	if err != nil {
		return 0, fmt.Errorf("x11: get crtc gamma size: %w", err)
	}
	return int(gamma.Size), nil
}

func (c *xConn) Apply(output Output, ramp colorramp.Ramp) error {
	crtc, ok := output.(xOutput)
	if !ok {
		return fmt.Errorf("x11: not an x11 output: %s", output)
	}
	size := uint16(len(ramp.Red))
	if err := randr.SetCrtcGammaChecked(c.conn, randr.Crtc(crtc), size, ramp.Red, ramp.Green, ramp.Blue).Check(); err != nil {
		return fmt.Errorf("x11: set crtc gamma: %w", err)
	}
	c.logger.Debug("x11: applied ramp", "crtc", uint32(crtc), "size", size)
	return nil
}

func (c *xConn) Close() error {
	c.conn.Close()
	return nil
}
