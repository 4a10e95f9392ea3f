package catcher

import "github.com/deepnoodle-ai/unwind/cleanup"

// Cleanups is the deferred-cleanup registry consulted by catchers and Throw.
// *cleanup.Chain implements it.
type Cleanups interface {
	// Snapshot starts a new cleanup scope and returns a marker for the old one.
	Snapshot() cleanup.Marker
	// Restore drops pending entries without running them and reinstates the
	// scope saved in the marker.
	Restore(m cleanup.Marker)
	// RunAll runs and clears every entry in the current scope.
	RunAll() error
}

// Hooks restore externally visible session state when an abort unwinds. They
// are called only from Throw, in declaration order.
type Hooks interface {
	// ClearQueuedActions drops actions queued for the paused operation.
	ClearQueuedActions()
	// DisableLiveDisplay stops any live display refresh.
	DisableLiveDisplay()
	// AsyncExecutionActive reports whether execution-control cleanups must
	// run.
	AsyncExecutionActive() bool
	// SyncWaitOutstanding reports whether execution-error cleanups must run.
	SyncWaitOutstanding() bool
	// RunExecCleanups runs the execution-control cleanup registry.
	RunExecCleanups()
	// RunExecErrorCleanups runs the execution-error cleanup registry.
	RunExecErrorCleanups()
}

// NoHooks implements Hooks with no session state.
type NoHooks struct{}

func (NoHooks) ClearQueuedActions()        {}
func (NoHooks) DisableLiveDisplay()        {}
func (NoHooks) AsyncExecutionActive() bool { return false }
func (NoHooks) SyncWaitOutstanding() bool  { return false }
func (NoHooks) RunExecCleanups()           {}
func (NoHooks) RunExecErrorCleanups()      {}
