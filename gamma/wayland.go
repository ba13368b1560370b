//go:build unix

package gamma

import (
	"fmt"
	"log/slog"
	"strconv"
	"unsafe"

	"codeberg.org/tesselslate/wl"
	"golang.org/x/sys/unix"

	"github.com/pgaskin/redshiftctl/colorramp"
	"github.com/pgaskin/redshiftctl/wayland"
	"github.com/pgaskin/redshiftctl/wayland/zwlr"
)

// wlConn applies gamma ramps using the wlr-gamma-control-unstable-v1
// protocol. Only one client may hold the gamma control for an output at a
// time, and the compositor restores the original tables when the control is
// destroyed or the client disconnects, so ramps applied through this backend
// only persist while the connection is held open.
type wlConn struct {
	conn    *wayland.Connection
	logger  *slog.Logger
	manager *zwlr.GammaControlManagerV1
	outputs []*wlOutput
}

// wlOutput state is guarded by the connection (only read or written within
// Connection.Do).
type wlOutput struct {
	name    uint32
	control *zwlr.GammaControlV1
	size    int
	failed  bool
}

func (o *wlOutput) String() string {
	return "output " + strconv.FormatUint(uint64(o.name), 10)
}

func openWayland(display string, logger *slog.Logger) (Conn, error) {
	conn, err := wayland.Connect(display)
	if err != nil {
		return nil, fmt.Errorf("wayland: connect: %w", err)
	}

	c := &wlConn{conn: conn, logger: logger}

	// Globals can be announced in any order, so output binding is deferred
	// until after the first roundtrip, when the gamma control manager (if
	// the compositor has one) is known.
	type globalOutput struct {
		registry wl.Registry
		name     uint32
		version  uint32
	}
	var announced []globalOutput
	err = conn.Registry(wl.RegistryListener{
		Global: func(data any, self wl.Registry, name uint32, iface string, version uint32) error {
			return c.conn.Do(func() error {
				switch iface {
				case zwlr.GammaControlManagerV1Interface.Name:
					manager := zwlr.GammaControlManagerV1(self.Bind(name, &zwlr.GammaControlManagerV1Interface, version))
					c.manager = &manager
				case wl.OutputInterface.Name:
					announced = append(announced, globalOutput{self, name, version})
				}
				return nil
			})
		},
		GlobalRemove: func(data any, self wl.Registry, name uint32) error {
			return c.conn.Do(func() error {
				for _, o := range c.outputs {
					if o.name == name && !o.failed {
						o.failed = true
						if o.control != nil {
							o.control.Destroy()
							o.control = nil
						}
					}
				}
				return nil
			})
		},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wayland: get registry: %w", err)
	}
	if err := conn.Roundtrip(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wayland: sync globals: %w", err)
	}

	err = conn.Do(func() error {
		if c.manager == nil {
			return fmt.Errorf("compositor does not support %s", zwlr.GammaControlManagerV1Interface.Name)
		}
		for _, a := range announced {
			output := wl.Output(a.registry.Bind(a.name, &wl.OutputInterface, a.version))
			control := c.manager.GetGammaControl(output)
			o := &wlOutput{name: a.name, control: &control}
			control.SetListener(zwlr.GammaControlV1Listener{
				GammaSize: func(data any, self zwlr.GammaControlV1, size uint32) error {
					return c.conn.Do(func() error {
						o.size = int(size)
						return nil
					})
				},
				Failed: func(data any, self zwlr.GammaControlV1) error {
					return c.conn.Do(func() error {
						// another client holds the control, or the output
						// is gone or has no gamma support
						o.failed = true
						if o.control != nil {
							o.control.Destroy()
							o.control = nil
						}
						return nil
					})
				},
			}, nil)
			c.outputs = append(c.outputs, o)
		}
		return nil
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wayland: %w", err)
	}

	// pick up the gamma_size (or failed) event for each control
	if err := conn.Roundtrip(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wayland: sync gamma controls: %w", err)
	}

	logger.Debug("wayland: connected", "outputs", len(c.outputs))

	return c, nil
}

func (c *wlConn) Outputs() ([]Output, error) {
	var outputs []Output
	err := c.conn.Do(func() error {
		for _, o := range c.outputs {
			outputs = append(outputs, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wayland: %w", err)
	}
	return outputs, nil
}

func (c *wlConn) RampSize(output Output) (int, error) {
	o, ok := output.(*wlOutput)
	if !ok {
		return 0, fmt.Errorf("wayland: not a wayland output: %s", output)
	}
	var size int
	err := c.conn.Do(func() error {
		size = o.size
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("wayland: %w", err)
	}
	if size == 0 {
		// no gamma_size event means the control never became usable
		return 0, fmt.Errorf("wayland: no gamma ramp size advertised for %s", output)
	}
	return size, nil
}

func (c *wlConn) Apply(output Output, ramp colorramp.Ramp) error {
	o, ok := output.(*wlOutput)
	if !ok {
		return fmt.Errorf("wayland: not a wayland output: %s", output)
	}
	size := len(ramp.Red)

	// The ramps are passed as a fd containing the three channel tables
	// back-to-back as native-endian uint16s.
	fd, err := unix.Open("/dev/shm", unix.O_TMPFILE|unix.O_RDWR|unix.O_EXCL|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("wayland: allocate shared memory: %w", err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(size)*3*2); err != nil {
		return fmt.Errorf("wayland: allocate shared memory: %w", err)
	}
	if _, err := unix.Pwritev(fd, [][]byte{
		unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(ramp.Red))), size*2),
		unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(ramp.Green))), size*2),
		unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(ramp.Blue))), size*2),
	}, 0); err != nil {
		return fmt.Errorf("wayland: write ramp: %w", err)
	}
	if _, err := unix.Seek(fd, 0, unix.SEEK_SET); err != nil {
		return fmt.Errorf("wayland: seek ramp: %w", err)
	}

	err = c.conn.Do(func() error {
		if o.failed || o.control == nil {
			return nil // checked below
		}
		if o.size != size {
			return nil
		}
		o.control.SetGamma(fd)
		return nil
	})
	if err != nil {
		return fmt.Errorf("wayland: set gamma: %w", err)
	}

	// a set_gamma rejection arrives asynchronously as a failed event
	if err := c.conn.Roundtrip(); err != nil {
		return fmt.Errorf("wayland: %w", err)
	}
	var rejected bool
	var sizeMismatch int
	err = c.conn.Do(func() error {
		rejected = o.failed || o.control == nil
		if !rejected && o.size != size {
			sizeMismatch = o.size
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("wayland: %w", err)
	}
	if rejected {
		return fmt.Errorf("wayland: compositor rejected gamma control for %s", output)
	}
	if sizeMismatch != 0 {
		return fmt.Errorf("wayland: ramp size %d does not match advertised size %d", size, sizeMismatch)
	}
	c.logger.Debug("wayland: applied ramp", "output", o.name, "size", size)
	return nil
}

// Wait implements [Waiter]; ramps applied over this connection revert when
// it closes.
func (c *wlConn) Wait() <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- c.conn.Closed()
	}()
	return ch
}

func (c *wlConn) Close() error {
	c.conn.Close()
	return nil
}
