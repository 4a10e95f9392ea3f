// Package cleanup implements a registry of deferred recovery actions. Actions
// are pushed as work progresses and run newest first, either explicitly down
// to a level or all at once when an abort unwinds the current scope.
package cleanup

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Func is a deferred recovery action.
type Func func() error

// Level identifies a depth in the chain. Running or discarding "down to" a
// level affects only entries pushed after the level was obtained.
type Level int

// Marker saves the scope of a chain so that it can be reinstated later.
type Marker struct {
	base int
}

type entry struct {
	name string
	fn   Func
}

// Chain is a LIFO registry of cleanup actions. Entries pushed before the most
// recent Snapshot belong to an outer scope and are neither run nor discarded
// until that scope is restored.
//
// A Chain is not safe for concurrent use.
type Chain struct {
	entries []entry
	base    int
}

// New returns an empty chain.
func New() *Chain {
	return &Chain{}
}

// Push registers fn and returns the level the chain had before the push.
// Passing that level to Do or Discard removes fn and anything pushed after it.
func (c *Chain) Push(name string, fn Func) Level {
	level := Level(len(c.entries))
	c.entries = append(c.entries, entry{name: name, fn: fn})
	return level
}

// Len returns the number of entries visible in the current scope.
func (c *Chain) Len() int {
	return len(c.entries) - c.base
}

// Do runs the entries above level, newest first, removing each one before it
// runs. Errors are collected and returned together.
func (c *Chain) Do(level Level) error {
	var result *multierror.Error
	for len(c.entries) > c.base && len(c.entries) > int(level) {
		last := len(c.entries) - 1
		e := c.entries[last]
		c.entries = c.entries[:last]
		if e.fn == nil {
			continue
		}
		if err := e.fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("cleanup %q: %w", e.name, err))
		}
	}
	return result.ErrorOrNil()
}

// Discard removes the entries above level without running them.
func (c *Chain) Discard(level Level) {
	n := int(level)
	if n < c.base {
		n = c.base
	}
	if n < len(c.entries) {
		clear(c.entries[n:])
		c.entries = c.entries[:n]
	}
}

// RunAll runs every entry in the current scope.
func (c *Chain) RunAll() error {
	return c.Do(Level(c.base))
}

// Snapshot starts a new scope. Entries pushed before the call are hidden from
// Do, Discard and RunAll until Restore is called with the returned marker.
func (c *Chain) Snapshot() Marker {
	m := Marker{base: c.base}
	c.base = len(c.entries)
	return m
}

// Restore drops any entries still pending in the current scope, without
// running them, and reinstates the scope saved by m.
func (c *Chain) Restore(m Marker) {
	c.Discard(Level(c.base))
	c.base = m.base
}
