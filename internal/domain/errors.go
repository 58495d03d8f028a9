package domain

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned when the destination session is not authorised.
var ErrNoSession = errors.New("no valid session")

// TransportError is a non-success HTTP response from Toggl or freee.
type TransportError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// SubmissionError aborts a workload batch at the first failing row.
type SubmissionError struct {
	Row       int // 1-based data row, header excluded
	Entry     WorkEntry
	Submitted int // rows accepted before the failure
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit row %d (project %d, date %q, minutes %d): %v",
		e.Row, e.Entry.ProjectID, e.Entry.Date, e.Entry.Minutes, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
