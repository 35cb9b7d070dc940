package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kjk/modelrun/kvfile"
)

// Reader reads blocks written by Writer
type Reader struct {
	r *bufio.Reader

	// hints that the data was written without a timestamp
	// (see Writer.NoTimestamp). We're permissive i.e. we'll
	// read timestamp if it's written even if NoTimestamp is true
	NoTimestamp bool

	// Data / Name / Timestamp are available after NextData() or Next().
	// They are over-written by the next call.
	Data      []byte
	Name      string
	Timestamp time.Time

	// Record is available after Next()
	Record *kvfile.Record

	// position of the current block within the reader
	CurrRecordPos int64
	// position of the next block within the reader
	NextRecordPos int64

	err  error
	done bool
}

// NewReader creates a new reader
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{
		r: br,
	}
}

// Done returns true if we're finished reading
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns error from last read. io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) badHeader(hdr []byte) bool {
	r.err = fmt.Errorf("journal: unexpected header '%s' at offset %d", string(bytes.TrimSpace(hdr)), r.CurrRecordPos)
	return false
}

// NextData reads next block. Returns false when there are no more blocks
// or on error (check Err()).
func (r *Reader) NextData() bool {
	if r.Done() {
		return false
	}
	r.Name = ""
	r.Timestamp = time.Time{}
	r.CurrRecordPos = r.NextRecordPos

	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			if len(hdr) > 0 {
				r.err = io.ErrUnexpectedEOF
			}
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	recSize := len(hdr)

	if !bytes.HasPrefix(hdr, hdrPrefix) {
		return r.badHeader(hdr)
	}
	rest := hdr[len(hdrPrefix) : len(hdr)-1]

	dataSize, rest, _ := bytes.Cut(rest, []byte{' '})
	size, err := strconv.ParseInt(string(dataSize), 10, 64)
	if err != nil || size < 0 {
		return r.badHeader(hdr)
	}

	var timestamp, name []byte
	if r.NoTimestamp {
		// timestamp is all digits, a name is not
		ts, after, _ := bytes.Cut(rest, []byte{' '})
		if _, err := strconv.ParseInt(string(ts), 10, 64); len(ts) > 0 && err == nil {
			timestamp, name = ts, after
		} else {
			name = rest
		}
	} else {
		timestamp, name, _ = bytes.Cut(rest, []byte{' '})
		if len(timestamp) == 0 {
			return r.badHeader(hdr)
		}
	}
	if len(timestamp) > 0 {
		ms, err := strconv.ParseInt(string(timestamp), 10, 64)
		if err != nil {
			return r.badHeader(hdr)
		}
		r.Timestamp = time.UnixMilli(ms)
	}
	r.Name = string(name)

	// re-use r.Data as long as it doesn't grow too much
	if cap(r.Data) > 1024*1024 {
		r.Data = nil
	}
	if size > int64(cap(r.Data)) {
		r.Data = make([]byte, size)
	} else {
		r.Data = r.Data[:size]
	}
	n, err := io.ReadFull(r.r, r.Data)
	if err != nil {
		r.err = err
		return false
	}
	recSize += n

	// same as in MarshalLine: newline added after data not ending with one
	if n > 0 && r.Data[n-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
		recSize++
	}
	r.NextRecordPos += int64(recSize)
	return true
}

// Next reads next block and parses it as a record.
// Returns false when there are no more blocks or on error (check Err()).
func (r *Reader) Next() bool {
	if !r.NextData() {
		return false
	}
	r.Record, r.err = kvfile.Parse(r.Data)
	return r.err == nil
}

// ReadFile calls fn for every record in a journal file
func ReadFile(path string, fn func(r *Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := NewReader(f)
	for r.Next() {
		if err = fn(r); err != nil {
			return err
		}
	}
	return r.Err()
}
