package catcher

import "github.com/deepnoodle-ai/unwind/exception"

// ScopeEvent describes a catcher being pushed or popped.
type ScopeEvent struct {
	// Depth is the stack depth including the catcher.
	Depth int
	// Mask is the set of reasons the catcher intercepts.
	Mask exception.Mask
}

// ThrowEvent describes an abort reaching a catcher.
type ThrowEvent struct {
	// Depth is the stack depth of the catcher handling the event.
	Depth int
	// Mask is the mask of that catcher.
	Mask exception.Mask
	// Record is the abort being propagated.
	Record exception.Record
}

// Observer receives notifications about scope and abort events. It can be
// used for metrics, tracing or journaling without modifying the core.
//
// Observer methods are called synchronously on the goroutine running the
// protected calls, in the middle of unwinding. Implementations must be fast
// and must not throw.
type Observer interface {
	// OnAcquire is called after a catcher is pushed.
	OnAcquire(event ScopeEvent)
	// OnRelease is called after a catcher is popped.
	OnRelease(event ScopeEvent)
	// OnThrow is called when an abort is about to unwind to a catcher.
	OnThrow(event ThrowEvent)
	// OnCatch is called when a catcher intercepts an abort.
	OnCatch(event ThrowEvent)
	// OnRelay is called when a catcher declines an abort and relays it.
	OnRelay(event ThrowEvent)
}

// NoOpObserver implements Observer with no-ops. Embed it to implement only
// the methods you need.
type NoOpObserver struct{}

func (NoOpObserver) OnAcquire(ScopeEvent) {}
func (NoOpObserver) OnRelease(ScopeEvent) {}
func (NoOpObserver) OnThrow(ThrowEvent)   {}
func (NoOpObserver) OnCatch(ThrowEvent)   {}
func (NoOpObserver) OnRelay(ThrowEvent)   {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnAcquire(e ScopeEvent) {
	for _, o := range m {
		o.OnAcquire(e)
	}
}

func (m MultiObserver) OnRelease(e ScopeEvent) {
	for _, o := range m {
		o.OnRelease(e)
	}
}

func (m MultiObserver) OnThrow(e ThrowEvent) {
	for _, o := range m {
		o.OnThrow(e)
	}
}

func (m MultiObserver) OnCatch(e ThrowEvent) {
	for _, o := range m {
		o.OnCatch(e)
	}
}

func (m MultiObserver) OnRelay(e ThrowEvent) {
	for _, o := range m {
		o.OnRelay(e)
	}
}
