package command

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCommand means the text is not addressed as a command at all.
	ErrNotCommand = errors.New("not a command")

	// ErrMalformed is the parent of every error for text that is a command
	// but cannot be parsed.
	ErrMalformed = errors.New("malformed command")

	ErrUnknownCommand  = fmt.Errorf("%w: unknown command", ErrMalformed)
	ErrWrongRecipient  = fmt.Errorf("%w: addressed to another bot", ErrMalformed)
	ErrMentionRequired = fmt.Errorf("%w: bot mention required", ErrMalformed)
)

// ArityError reports a positional argument count mismatch.
type ArityError struct {
	Command string
	Want    int
	Got     int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("command %q: want %d argument(s), got %d", e.Command, e.Want, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrMalformed }

// ConversionError reports an argument that does not fit its declared type.
type ConversionError struct {
	Command string
	Arg     string
	Type    ArgType
	Value   string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("command %q: argument %s=%q is not a valid %s: %v", e.Command, e.Arg, e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() []error { return []error{ErrMalformed, e.Err} }
