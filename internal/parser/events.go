package parser

import "fmt"

// Event is a line of upstream output after classification. The concrete
// types are Continuation, PassThrough, Started, Skipped, Finished and
// Unrecognized.
type Event interface {
	event()
}

// Header carries the fields shared by every task status line.
type Header struct {
	ID          int
	Total       int
	Description string
	Timestamp   string
}

// Continuation is a line that extends the previous record and must be
// printed verbatim.
type Continuation struct {
	Text string
}

// PassThrough is a timestamped record that reports no task status.
type PassThrough struct {
	Timestamp string
	Text      string
}

// Line returns the record as it should be printed, colors removed.
func (p PassThrough) Line() string {
	return p.Timestamp + p.Text
}

// Started reports that a task entered Running.
type Started Header

// Skipped reports a task that upstream skipped. It is terminal on arrival.
type Skipped Header

// Finished reports the completion of a running task.
type Finished struct {
	Header
	Outcome Outcome
}

// Unrecognized is a status line whose keyword is not known.
type Unrecognized struct {
	Timestamp string
	Status    string
}

func (Continuation) event() {}
func (PassThrough) event()  {}
func (Started) event()      {}
func (Skipped) event()      {}
func (Finished) event()     {}
func (Unrecognized) event() {}

// Outcome is the result carried by a Finished event: Success or Error.
type Outcome interface {
	outcome()
	// Seconds returns the runtime upstream reported.
	Seconds() float64
}

// Success is a completion with an exit code.
type Success struct {
	ExitCode int
	Runtime  float64
}

// Error is a failed completion.
type Error struct {
	Runtime float64
}

func (Success) outcome() {}
func (Error) outcome()   {}

// Seconds returns the reported runtime.
func (s Success) Seconds() float64 { return s.Runtime }

// Seconds returns the reported runtime.
func (e Error) Seconds() float64 { return e.Runtime }

// ParseError reports a status line whose fields could not be decoded.
type ParseError struct {
	Line   string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}
