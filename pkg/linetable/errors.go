package linetable

import "fmt"

// FormatError reports a line of the table that does not have the expected
// shape. It fails the whole parse.
type FormatError struct {
	Source string
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }
