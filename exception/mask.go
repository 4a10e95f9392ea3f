package exception

import "strings"

// Mask is the set of abort reasons a catcher is willing to intercept.
type Mask uint

const (
	// MaskError intercepts Error aborts.
	MaskError Mask = 1 << -Error
	// MaskQuit intercepts Quit aborts.
	MaskQuit Mask = 1 << -Quit
	// MaskAll intercepts every abort reason.
	MaskAll = MaskError | MaskQuit
)

// MaskOf returns the mask bit for an abort reason. Non-abort reasons map to
// the empty mask.
func MaskOf(r Reason) Mask {
	if !r.IsAbort() {
		return 0
	}
	return 1 << uint(-r)
}

// Covers returns true if the mask intercepts the given reason.
func (m Mask) Covers(r Reason) bool {
	return m&MaskOf(r) != 0
}

// String returns the string representation of the mask.
func (m Mask) String() string {
	var parts []string
	if m&MaskError != 0 {
		parts = append(parts, "error")
	}
	if m&MaskQuit != 0 {
		parts = append(parts, "quit")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
