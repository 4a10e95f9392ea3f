// Package session holds the externally visible state of an interactive
// session that must be put back in order when an abort unwinds: queued
// actions, live displays and the execution-control cleanup registries.
package session

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/unwind/cleanup"
)

// Display is an expression shown after every command while enabled.
type Display struct {
	ID      int
	Expr    string
	Enabled bool
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used to report failing exec cleanups.
func WithLogger(l zerolog.Logger) Option {
	return func(s *State) {
		s.log = l
	}
}

// WithAsync marks the target as able to run asynchronously.
func WithAsync(enabled bool) Option {
	return func(s *State) {
		s.asyncCapable = enabled
	}
}

// State implements catcher.Hooks.
type State struct {
	queued            []string
	displays          []*Display
	nextDisplay       int
	current           *Display
	asyncCapable      bool
	executing         bool
	syncExecution     bool
	execCleanups      *cleanup.Chain
	execErrorCleanups *cleanup.Chain
	log               zerolog.Logger
}

// New returns an idle session.
func New(opts ...Option) *State {
	s := &State{
		execCleanups:      cleanup.New(),
		execErrorCleanups: cleanup.New(),
		log:               zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queue appends an action to run once the current command finishes.
func (s *State) Queue(action string) {
	s.queued = append(s.queued, action)
}

// Queued returns the pending actions.
func (s *State) Queued() []string {
	return append([]string(nil), s.queued...)
}

// TakeQueued removes and returns the oldest pending action.
func (s *State) TakeQueued() (string, bool) {
	if len(s.queued) == 0 {
		return "", false
	}
	action := s.queued[0]
	s.queued = s.queued[1:]
	return action, true
}

// AddDisplay registers an enabled display and returns it.
func (s *State) AddDisplay(expr string) *Display {
	s.nextDisplay++
	d := &Display{ID: s.nextDisplay, Expr: expr, Enabled: true}
	s.displays = append(s.displays, d)
	return d
}

// Displays returns the registered displays in creation order.
func (s *State) Displays() []*Display {
	return append([]*Display(nil), s.displays...)
}

// BeginDisplay marks d as the display being refreshed. An abort raised
// before EndDisplay disables it.
func (s *State) BeginDisplay(d *Display) {
	s.current = d
}

// EndDisplay clears the display being refreshed.
func (s *State) EndDisplay() {
	s.current = nil
}

// SetExecuting records whether the target is running.
func (s *State) SetExecuting(v bool) {
	s.executing = v
}

// Executing returns true while the target is running.
func (s *State) Executing() bool {
	return s.executing
}

// SetSyncExecution records whether the session waits for the target in the
// foreground.
func (s *State) SetSyncExecution(v bool) {
	s.syncExecution = v
}

// ExecCleanups returns the registry run when an abort interrupts
// asynchronous execution control.
func (s *State) ExecCleanups() *cleanup.Chain {
	return s.execCleanups
}

// ExecErrorCleanups returns the registry run when an abort interrupts a
// synchronous wait.
func (s *State) ExecErrorCleanups() *cleanup.Chain {
	return s.execErrorCleanups
}

// ClearQueuedActions implements catcher.Hooks.
func (s *State) ClearQueuedActions() {
	if len(s.queued) > 0 {
		s.log.Debug().Int("count", len(s.queued)).Msg("dropping queued actions")
	}
	s.queued = nil
}

// DisableLiveDisplay implements catcher.Hooks. Only the display being
// refreshed is disabled; others keep their state.
func (s *State) DisableLiveDisplay() {
	if s.current == nil {
		return
	}
	s.log.Debug().Int("display", s.current.ID).Msg("disabling display")
	s.current.Enabled = false
	s.current = nil
}

// AsyncExecutionActive implements catcher.Hooks.
func (s *State) AsyncExecutionActive() bool {
	return s.asyncCapable && !s.executing
}

// SyncWaitOutstanding implements catcher.Hooks.
func (s *State) SyncWaitOutstanding() bool {
	return s.syncExecution
}

// RunExecCleanups implements catcher.Hooks.
func (s *State) RunExecCleanups() {
	if err := s.execCleanups.RunAll(); err != nil {
		s.log.Warn().Err(err).Msg("exec cleanup failed")
	}
}

// RunExecErrorCleanups implements catcher.Hooks.
func (s *State) RunExecErrorCleanups() {
	if err := s.execErrorCleanups.RunAll(); err != nil {
		s.log.Warn().Err(err).Msg("exec error cleanup failed")
	}
}
