package kvfile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound is the kind of errors for files that don't exist
	// or can't be read
	ErrFileNotFound = errors.New("file not found or not readable")
	// ErrFormat is the kind of errors for content that can't be
	// parsed or records that can't be serialized
	ErrFormat = errors.New("invalid format")
	// ErrWrite is the kind of errors for failed writes
	ErrWrite = errors.New("write failed")
	// ErrMissingKey is returned by typed accessors
	ErrMissingKey = errors.New("missing key")
)

// Error describes a failed read, parse or write.
// Use errors.Is(err, ErrFormat) etc. to check the kind.
type Error struct {
	// Kind is ErrFileNotFound, ErrFormat or ErrWrite
	Kind error
	Path string
	// 1-based line number, 0 if not applicable
	Line int
	// offending line or key
	Text string
	Msg  string
	// underlying error, can be nil
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("kvfile: ")
	sb.WriteString(e.Kind.Error())
	if e.Path != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Path)
	}
	if e.Line > 0 {
		if e.Path == "" {
			sb.WriteString(": line")
		}
		fmt.Fprintf(&sb, ":%d", e.Line)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Text != "" {
		fmt.Fprintf(&sb, " in '%s'", e.Text)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func formatError(line int, text string, msg string) *Error {
	return &Error{
		Kind: ErrFormat,
		Line: line,
		Text: text,
		Msg:  msg,
	}
}

// withPath sets Path on *Error, other errors are returned unchanged
func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}

// ValueError is returned when a value can't be parsed as requested type
type ValueError struct {
	Key   string
	Value string
	Type  string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("kvfile: value '%s' of key '%s' is not a valid %s", e.Value, e.Key, e.Type)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
