package eventlog

import "fmt"

// MalformedLogError reports an event log that is absent or cannot be parsed.
// It is fatal to an archive run: without events there is no timeline.
type MalformedLogError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedLogError) Error() string {
	msg := "malformed event log"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedLogError) Unwrap() error { return e.Err }

func malformed(reason string, err error) *MalformedLogError {
	return &MalformedLogError{Reason: reason, Err: err}
}
