// Package erruser provides errors whose Error() returns only a user-facing
// message; the cause is available via Unwrap() for Details or logs. Each error
// may carry the process exit code the CLI should terminate with.
package erruser

import "errors"

// DefaultCode is the exit code for fatal errors that do not set one.
const DefaultCode = 1

// Err holds a user-facing message, an optional cause, and an exit code.
// Error() returns only Msg; use Unwrap() for technical detail.
type Err struct {
	Msg  string
	Err  error
	Code int
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error for Details or logging.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message and DefaultCode.
// If err is nil, returns a simple error with just msg (no Unwrap).
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err, Code: DefaultCode}
}

// WithCode is like New but always returns *Err so code survives when err is nil.
func WithCode(code int, msg string, err error) error {
	return &Err{Msg: msg, Err: err, Code: code}
}

// ExitCode returns the exit code carried by the first *Err in err's chain,
// DefaultCode for any other non-nil error, and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Err
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return DefaultCode
}
