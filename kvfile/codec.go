package kvfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Parse parses d as key=value lines
func Parse(d []byte) (*Record, error) {
	return Decode(bytes.NewReader(d))
}

// Decode reads key=value lines from r until io.EOF.
// Parse errors are *Error with Kind ErrFormat.
func Decode(r io.Reader) (*Record, error) {
	br := bufio.NewReader(r)
	rec := New()
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if line != "" {
			lineNo++
			if perr := parseLine(rec, line, lineNo); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			return rec, nil
		}
	}
}

func parseLine(rec *Record, line string, lineNo int) error {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if line == "" {
		return nil
	}
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return formatError(lineNo, line, "missing '='")
	}
	if key == "" {
		return formatError(lineNo, line, "empty key")
	}
	// last occurrence of a duplicate key wins
	rec.SetString(key, val)
	return nil
}

// Validate checks that every entry would read back unchanged
func Validate(r *Record) error {
	for i, e := range r.Entries() {
		if err := validateEntry(e); err != nil {
			err.Line = i + 1
			return err
		}
	}
	return nil
}

func validateEntry(e Entry) *Error {
	k, v := e.Key, e.Value
	switch {
	case k == "":
		return formatError(0, "", "empty key")
	case strings.Contains(k, "="):
		return formatError(0, k, "key contains '='")
	case strings.ContainsAny(k, "\r\n"):
		return formatError(0, k, "key contains a newline")
	case strings.ContainsAny(v, "\r\n"):
		return formatError(0, k, "value contains a newline")
	case strings.TrimRightFunc(v, unicode.IsSpace) != v:
		return formatError(0, k, "value has trailing whitespace")
	}
	return nil
}

// Encode writes r as key=value lines to w, in record order
func Encode(w io.Writer, r *Record) error {
	if err := Validate(r); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for k, v := range r.All() {
		if _, err := fmt.Fprintf(bw, "%s=%s\n", k, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal returns r serialized as key=value lines
func Marshal(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
