// Package wayland wraps the wl client library's main loop behind a
// goroutine-safe connection with synchronous helpers.
package wayland

import (
	"os"

	"codeberg.org/tesselslate/wl"
)

// The wl library dispatches events on whichever goroutine calls Dispatch,
// and its write queue is not goroutine-safe, so every call which touches
// objects (including from within event callbacks, which run on the dispatch
// goroutine) has to be serialized against the dispatch loop. Connection does
// that with a channel-based lock so waiters can also observe the connection
// closing.

// Connection is an open connection to a Wayland compositor, dispatching
// events on a background goroutine. All methods on protocol objects must be
// called within [Connection.Do] or [Connection.Enqueue]. Any error returned
// from a callback or a Do/Enqueue function is fatal and closes the
// connection.
type Connection struct {
	done      chan struct{}
	closed    chan struct{}
	closedErr error
	mu        chan struct{} // write queue lock (chan so closed can be selected too)
	display   *wl.Display
}

// Connect connects to the named display, or the session's default display if
// name is empty.
func Connect(name string) (*Connection, error) {
	display, err := wl.NewDisplay(name)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
		mu:      make(chan struct{}, 1),
		display: display,
	}
	go c.run()

	c.mu <- struct{}{}

	return c, nil
}

func (c *Connection) run() {
	defer close(c.done)
	for {
		// flush any queued messages
		if err := c.Do(func() error {
			return nil
		}); err != nil {
			return // Do will have already called closeWithError
		}
		// read and dispatch messages
		if err := c.display.Dispatch(); err != nil {
			c.closeWithError(err)
			return
		}
	}
}

// Registry requests the display's registry with the provided listener, which
// will receive a Global callback for each existing global before the next
// [Connection.Roundtrip] returns.
func (c *Connection) Registry(cb wl.RegistryListener) error {
	return c.Do(func() error {
		registry := c.display.GetRegistry()
		registry.SetListener(cb, nil)
		return nil
	})
}

// Do runs the provided function while blocking the dispatch loop and any
// other calls to Do, then flushes the connection. It is not re-entrant and
// must not be called within another call to Do or Enqueue.
func (c *Connection) Do(fn func() error) error {
	select {
	case <-c.closed:
		if err := c.closedErr; err != nil {
			return err
		}
		return os.ErrClosed
	case <-c.mu: // lock
	}
	if err := fn(); err != nil {
		c.closeWithErrorLocked(err)
		return err
	}
	if err := c.display.Flush(); err != nil {
		c.closeWithErrorLocked(err)
		return err
	}
	c.mu <- struct{}{} // unlock
	return nil
}

// Enqueue waits for all pending events to be processed, then executes the
// provided function on the dispatch loop.
func (c *Connection) Enqueue(fn func() error) error {
	done := make(chan struct{})

	if err := c.Do(func() error {
		// an async callback ensures all events so far have been dispatched
		cb := c.display.Sync()
		cb.SetListener(wl.CallbackListener{
			Done: func(data any, self wl.Callback, callbackData uint32) error {
				defer close(done)
				return c.Do(fn)
			},
		}, nil)
		return nil
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-c.closed:
		if err := c.closedErr; err != nil {
			return err
		}
		return os.ErrClosed
	}
}

// Roundtrip blocks until the compositor has processed all requests sent so
// far and all resulting events have been dispatched.
func (c *Connection) Roundtrip() error {
	return c.Enqueue(func() error {
		return nil
	})
}

// Close closes the connection if it is not already closed, interrupting any
// pending operations, and waits for the dispatch loop to return.
func (c *Connection) Close() {
	c.closeWithError(nil)
	<-c.done
}

func (c *Connection) closeWithError(err error) {
	select {
	case <-c.closed:
		return
	case <-c.mu: // lock
		// note: intentionally not unlocked so the closed chan is always
		// selected afterwards
	}
	c.closeWithErrorLocked(err)
}

func (c *Connection) closeWithErrorLocked(err error) {
	select {
	case <-c.closed:
		return
	default:
	}
	defer func() {
		c.closedErr = err
		close(c.closed)
	}()
	c.display.Close()
}

// Closed returns when the connection is closed. If the connection was not
// closed by [Connection.Close], the fatal error is returned.
func (c *Connection) Closed() error {
	<-c.closed
	return c.closedErr
}
