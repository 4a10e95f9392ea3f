package exception

import (
	"fmt"
	"runtime"
)

// InternalError is a software defect detected by the exception machinery,
// such as a catcher released out of order. Catchers never intercept it. It
// is raised with panic and normally crashes the program.
type InternalError struct {
	Message  string
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("internal error: %s", e.Message)
	}
	return fmt.Sprintf("%s:%d: internal error: %s", e.File, e.Line, e.Message)
}

// Internalf panics with an InternalError. The recorded location is the
// function that called Internalf, which is where the defect was detected.
func Internalf(format string, args ...any) {
	err := &InternalError{Message: fmt.Sprintf(format, args...)}
	if pc, file, line, ok := runtime.Caller(1); ok {
		err.File = file
		err.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			err.Function = fn.Name()
		}
	}
	panic(err)
}

// AsInternal returns the InternalError carried by a recovered panic value.
func AsInternal(v any) (*InternalError, bool) {
	err, ok := v.(*InternalError)
	return err, ok
}
