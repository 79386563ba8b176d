package slurm

import "fmt"

// ParseError reports malformed compact node-list syntax.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid node list %q: %s", e.Input, e.Reason)
}

// FormatError reports a record whose field has an unexpected shape, such as
// an unknown memory unit or a missing node key.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("bad %s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a job line with fewer fields than the queue
// format produces.
type MissingFieldError struct {
	Line string
	Got  int
	Want int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("job line has %d fields, want %d: %q", e.Got, e.Want, e.Line)
}

// RecordError ties a parse failure to the raw line it came from.
type RecordError struct {
	Line string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%v (line: %s)", e.Err, e.Line)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
