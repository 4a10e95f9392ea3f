// Package exception defines the value carried by an abort: a reason, an
// error kind refining the reason, and a human readable message.
package exception

import (
	"errors"
	"fmt"
	"strings"
)

// Reason classifies the outcome of a protected call. Abort reasons are
// strictly negative; the zero value means no abort occurred.
type Reason int

const (
	// None indicates the protected call returned normally.
	None Reason = 0
	// Error indicates a general failure. Errors always carry a message.
	Error Reason = -1
	// Quit indicates cooperative cancellation. The message is optional.
	Quit Reason = -2
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case None:
		return "none"
	case Error:
		return "error"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// IsAbort returns true if the reason signals an abort.
func (r Reason) IsAbort() bool {
	return r < 0
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	for _, v := range []Reason{None, Error, Quit} {
		if v.String() == string(text) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", text)
}

// ErrorKind refines an Error reason.
type ErrorKind int

const (
	// NoError is the kind of records that are not errors.
	NoError ErrorKind = iota
	// GenericError is any error without a more specific kind.
	GenericError
	// NotFoundError indicates a symbol, file or object could not be found.
	NotFoundError
	// NotSupportedError indicates the target cannot perform an operation.
	NotSupportedError
	// MemoryError indicates a failed read or write of target memory.
	MemoryError
	// TargetClosedError indicates the connection to the target was lost.
	TargetClosedError
	// UnavailableError indicates a value exists but cannot be retrieved.
	UnavailableError
)

var kindNames = map[ErrorKind]string{
	NoError:           "no error",
	GenericError:      "generic error",
	NotFoundError:     "not found",
	NotSupportedError: "not supported",
	MemoryError:       "memory error",
	TargetClosedError: "target closed",
	UnavailableError:  "unavailable",
}

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	v, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown error kind %q", text)
	}
	*k = v
	return nil
}

// ParseKind returns the kind with the given name. Dashes may be used in
// place of spaces, so "not-found" and "not found" are equivalent.
func ParseKind(name string) (ErrorKind, bool) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", " ")
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return NoError, false
}

// Record describes the outcome of a protected call. A zero Record means the
// call completed without an abort.
type Record struct {
	Reason  Reason    `json:"reason"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

// New builds an abort record. It panics with an InternalError if reason is
// not an abort reason, or if an Error record is built without a message.
func New(reason Reason, kind ErrorKind, message string) Record {
	if reason == Error && kind == NoError {
		kind = GenericError
	}
	r := Record{Reason: reason, Kind: kind, Message: message}
	if err := r.Validate(); err != nil {
		Internalf("cannot build abort record: %v", err)
	}
	return r
}

// Validate reports whether r is a well-formed abort record: its reason is
// Error or Quit, and an Error carries a message.
func (r Record) Validate() error {
	switch r.Reason {
	case Quit:
	case Error:
		if r.Message == "" {
			return errors.New("error record requires a message")
		}
	default:
		return fmt.Errorf("reason %s is not an abort reason", r.Reason)
	}
	return nil
}

// Errorf builds an Error record with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) Record {
	return New(Error, kind, fmt.Sprintf(format, args...))
}

// QuitWith builds a Quit record. An empty message produces a silent Quit.
func QuitWith(message string) Record {
	return New(Quit, NoError, message)
}

// IsAbort returns true if the record describes an abort.
func (r Record) IsAbort() bool {
	return r.Reason.IsAbort()
}

// HasMessage returns true if the record carries a message.
func (r Record) HasMessage() bool {
	return r.Message != ""
}

// Lines splits the message into physical lines. Each returned line keeps its
// trailing newline except possibly the last.
func (r Record) Lines() []string {
	if r.Message == "" {
		return nil
	}
	return strings.SplitAfter(r.Message, "\n")
}

// Error implements the error interface.
func (r Record) Error() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Reason == Error {
		return r.Kind.String()
	}
	return r.Reason.String()
}

// Is reports whether target is a Record with the same reason and kind.
func (r Record) Is(target error) bool {
	t, ok := target.(Record)
	if !ok {
		return false
	}
	return r.Reason == t.Reason && r.Kind == t.Kind
}

// String returns a debug representation of the record.
func (r Record) String() string {
	switch r.Reason {
	case None:
		return "none"
	case Error:
		return fmt.Sprintf("error[%s]: %s", r.Kind, r.Message)
	default:
		if r.Message == "" {
			return r.Reason.String()
		}
		return fmt.Sprintf("%s: %s", r.Reason, r.Message)
	}
}
