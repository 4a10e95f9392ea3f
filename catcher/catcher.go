// Package catcher implements protected calls: dynamic interception scopes
// that let deeply nested code abort with an exception.Record and resume at
// the nearest enclosing scope whose mask accepts the record's reason.
//
// A Stack holds the chain of active scopes for one logical call stack.
// Protected calls push a Catcher on entry and pop it on exit, whether the body
// returned normally or was aborted. Throw unwinds to the innermost scope after
// restoring session state. A scope whose mask does not cover the reason
// releases itself and relays the record to the next enclosing scope.
package catcher

import (
	"fmt"

	"github.com/deepnoodle-ai/unwind/cleanup"
	"github.com/deepnoodle-ai/unwind/exception"
	"github.com/deepnoodle-ai/unwind/uiout"
)

// State is the lifecycle state of a Catcher.
type State uint8

const (
	// Created is the state of a catcher that has been pushed but whose body
	// has not started.
	Created State = iota
	// Running is the state while the body executes.
	Running
	// RunningAlt is the state while the body executes as a breakable block.
	RunningAlt
	// Aborting is the state after a throw targeted the catcher.
	Aborting
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case RunningAlt:
		return "running-alt"
	case Aborting:
		return "aborting"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Action is an event that drives a Catcher through its lifecycle.
type Action uint8

const (
	// Iterate asks whether the protected body should run (again).
	Iterate Action = iota
	// IterateAlt toggles between the outer pass and the breakable inner pass.
	IterateAlt
	// Throwing signals that an abort is unwinding to the catcher.
	Throwing
)

func (a Action) String() string {
	switch a {
	case Iterate:
		return "iterate"
	case IterateAlt:
		return "iterate-alt"
	case Throwing:
		return "throwing"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Catcher is one interception scope. It is only valid while the protected
// call that created it is executing.
type Catcher struct {
	state         State
	slot          *exception.Record
	mask          exception.Mask
	savedSink     uiout.Sink
	savedCleanups cleanup.Marker
	prev          *Catcher
	depth         int
	released      bool
}

// State returns the lifecycle state of the catcher.
func (c *Catcher) State() State {
	return c.state
}

// Mask returns the set of reasons the catcher intercepts.
func (c *Catcher) Mask() exception.Mask {
	return c.mask
}

// Depth returns the 1-based position of the catcher on its stack.
func (c *Catcher) Depth() int {
	return c.depth
}

// unwinding is the panic value used to transfer control to the resume point
// of target.
type unwinding struct {
	target *Catcher
}

func (u *unwinding) String() string {
	return fmt.Sprintf("unwinding to catcher %d: %s", u.target.depth, *u.target.slot)
}
