package billboard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRecord is returned when a line of billboard output has too
	// few fields for the fixed column layout.
	ErrMalformedRecord = errors.New("malformed billboard record")

	// ErrNoOutput is returned when a billboard query prints nothing.
	ErrNoOutput = errors.New("no output from billboard")
)

// MalformedRecordError describes the offending line. Line is 1-based and
// counts the header.
type MalformedRecordError struct {
	Line   int
	Text   string
	Fields int
	Want   int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %d fields, need at least %d: %q", e.Line, e.Fields, e.Want, e.Text)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// CommandError is a billboard invocation that exited unsuccessfully.
type CommandError struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("billboard %s: %v", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
