package catcher

import "github.com/deepnoodle-ai/unwind/exception"

// Flow tells a breakable block how its body finished.
type Flow uint8

const (
	// Done means the body ran to completion.
	Done Flow = iota
	// Break means the body left early.
	Break
)

func (f Flow) String() string {
	if f == Break {
		return "break"
	}
	return "done"
}

// CatchBlock runs body as a breakable block inside a new catcher. The body
// returns Break to leave the block early; either way the catcher is released
// and aborts are intercepted according to mask exactly as for
// CatchException. The second result reports whether the body broke out.
func (s *Stack) CatchBlock(mask exception.Mask, body func() Flow) (exception.Record, bool) {
	var rec exception.Record
	broke := false
	s.protect(&rec, mask, nil, func() {
		for s.step(IterateAlt) {
			if body() == Break {
				broke = true
				break
			}
		}
	})
	return rec, broke
}
