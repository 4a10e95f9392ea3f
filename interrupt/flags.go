// Package interrupt holds the cooperative cancellation flags polled by
// long-running operations.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// Flags records a pending quit request and whether interrupts are currently
// suppressed. The zero value is ready to use. Flags may be set from any
// goroutine; they are consumed by the goroutine running protected calls.
type Flags struct {
	quit       atomic.Bool
	suppressed atomic.Bool
}

// RequestQuit marks a quit as pending.
func (f *Flags) RequestQuit() {
	f.quit.Store(true)
}

// QuitRequested returns true if a quit is pending.
func (f *Flags) QuitRequested() bool {
	return f.quit.Load()
}

// SetSuppressed enables or disables interrupt suppression. While suppressed,
// a pending quit is kept but not acted upon.
func (f *Flags) SetSuppressed(v bool) {
	f.suppressed.Store(v)
}

// Suppressed returns true if interrupts are suppressed.
func (f *Flags) Suppressed() bool {
	return f.suppressed.Load()
}

// ShouldQuit returns true if a quit is pending and interrupts are not
// suppressed.
func (f *Flags) ShouldQuit() bool {
	return f.QuitRequested() && !f.Suppressed()
}

// Clear resets both flags.
func (f *Flags) Clear() {
	f.quit.Store(false)
	f.suppressed.Store(false)
}

// Notify requests a quit on f each time one of the given signals arrives,
// until ctx is done. With no signals, os.Interrupt is used.
func Notify(ctx context.Context, f *Flags, signals ...os.Signal) {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				f.RequestQuit()
			}
		}
	}()
}
