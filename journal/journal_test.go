package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/kjk/modelrun/kvfile"
)

type testBlock struct {
	s    string
	name string
	pos  int
}

var testTime = time.UnixMilli(5000)

func writeBlocks(t *testing.T, tests []*testBlock) *bytes.Buffer {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	currPos := 0
	for _, test := range tests {
		test.pos = currPos
		n, err := w.Write([]byte(test.s), testTime, test.name)
		assert.NoError(t, err)
		currPos += n
	}
	return buf
}

func TestWriter(t *testing.T) {
	tests := []*testBlock{
		{s: "a=1\n"},
		{s: "b=2", name: "case-1"},
		{s: "", name: "empty"},
	}
	exp := `--- 4 5000
a=1
--- 3 5000 case-1
b=2
--- 0 5000 empty
`
	buf := writeBlocks(t, tests)
	assert.Equal(t, exp, buf.String())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	n := 0
	for r.NextData() {
		test := tests[n]
		assert.Equal(t, test.s, string(r.Data))
		assert.Equal(t, test.name, r.Name)
		assert.True(t, r.Timestamp.Equal(testTime))
		assert.Equal(t, int64(test.pos), r.CurrRecordPos)
		n++
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, len(tests), n)
	assert.Equal(t, int64(buf.Len()), r.NextRecordPos)
}

func TestDataStartingWithNewline(t *testing.T) {
	tests := []*testBlock{
		{s: "foo\n", name: "foo.txt"},
		{s: "\nstarts with newline", name: "nl"},
	}
	buf := writeBlocks(t, tests)
	r := NewReader(bytes.NewReader(buf.Bytes()))
	for _, test := range tests {
		assert.True(t, r.NextData())
		assert.Equal(t, test.s, string(r.Data))
	}
	assert.False(t, r.NextData())
	assert.NoError(t, r.Err())
}

func TestNoTimestamp(t *testing.T) {
	tests := []struct {
		data string
		name string
		exp  string
	}{
		{"foo", "name", "--- 3 name\nfoo\n"},
		{"foo\n", "", "--- 4\nfoo\n"},
		{"x", "two words", "--- 1 two words\nx\n"},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		w.NoTimestamp = true
		_, err := w.Write([]byte(test.data), time.Now(), test.name)
		assert.NoError(t, err)
		assert.Equal(t, test.exp, buf.String())

		r := NewReader(&buf)
		r.NoTimestamp = true
		assert.True(t, r.NextData())
		assert.Equal(t, test.data, string(r.Data))
		assert.Equal(t, test.name, r.Name)
		assert.True(t, r.Timestamp.IsZero())
	}
}

func TestRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	now := time.Now()
	var recs []*kvfile.Record
	for i := range 5 {
		rec, err := kvfile.FromPairs("case", i, "totalkWh", float64(i)*1.5)
		assert.NoError(t, err)
		recs = append(recs, rec)
		_, err = w.WriteRecord("out", now, rec)
		assert.NoError(t, err)
	}

	r := NewReader(&buf)
	i := 0
	for r.Next() {
		assert.Equal(t, "out", r.Name)
		assert.Equal(t, now.UnixMilli(), r.Timestamp.UnixMilli())
		assert.Equal(t, recs[i].Entries(), r.Record.Entries())
		i++
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, 5, i)
}

func TestWriteRecordInvalid(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	rec, _ := kvfile.FromPairs("a", "multi\nline")
	_, err := w.WriteRecord("x", time.Time{}, rec)
	assert.Error(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestReadErrors(t *testing.T) {
	invalid := []string{
		"ha\n",
		"--- \n",
		"--- x 5000\n",
		"--- 3\nabc\n",
		"--- 3 nots\nabc\n",
		"--- 10 5000\nabc\n",
		"--- 3 5000",
	}
	for _, s := range invalid {
		r := NewReader(strings.NewReader(s))
		assert.False(t, r.NextData(), "s: '%s'", s)
		assert.Error(t, r.Err(), "s: '%s'", s)
	}

	// block that isn't a valid record
	r := NewReader(strings.NewReader("--- 4 5000\nfoo\n"))
	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.journal")
	f, err := os.Create(path)
	assert.NoError(t, err)
	w := NewWriter(f)
	rec, _ := kvfile.FromPairs("panelRating", 250)
	_, err = w.WriteRecord("in", time.Time{}, rec)
	assert.NoError(t, err)
	_, err = w.WriteRecord("in", time.Time{}, rec)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())

	n := 0
	err = ReadFile(path, func(r *Reader) error {
		assert.Equal(t, "in", r.Name)
		assert.False(t, r.Timestamp.IsZero())
		v, _ := r.Record.Get("panelRating")
		assert.Equal(t, "250", v)
		n++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	err = ReadFile(filepath.Join(t.TempDir(), "missing"), func(r *Reader) error { return nil })
	assert.Error(t, err)
}
