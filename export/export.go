// Package export renders records and study results in other formats:
// JSON, TOON, unified diff and CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"

	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/kvfile"
)

// JSON returns rec as a JSON object with keys in record order.
// Values are strings. If indent is true, the output is pretty-printed.
func JSON(rec *kvfile.Record, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range rec.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		dk, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		dv, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(dk)
		buf.WriteByte(':')
		buf.Write(dv)
	}
	buf.WriteByte('}')
	if indent {
		return pretty.Pretty(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

// TOON returns rec in TOON format. Values that parse as numbers
// are written as numbers.
func TOON(rec *kvfile.Record) ([]byte, error) {
	m := map[string]any{}
	for k, v := range rec.All() {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m[k] = f
			continue
		}
		m[k] = v
	}
	return toon.Marshal(m)
}

// Diff returns a unified diff of two records, empty if they're Equal.
// Records are compared in canonical form: a's key order, then keys only in b.
func Diff(a, b *kvfile.Record, nameA, nameB string) (string, error) {
	if a.Equal(b) {
		return "", nil
	}
	da, err := kvfile.Marshal(a)
	if err != nil {
		return "", err
	}
	db, err := kvfile.Marshal(alignedTo(b, a))
	if err != nil {
		return "", err
	}
	diff := difflib.UnifiedDiff{
		A:        splitLines(da),
		B:        splitLines(db),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// difflib.SplitLines adds an empty line after the final newline
func splitLines(d []byte) []string {
	if len(d) == 0 {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(string(d), "\n"))
}

// alignedTo returns a copy of rec with keys ordered like in ref,
// so that order differences don't show up as changes
func alignedTo(rec *kvfile.Record, ref *kvfile.Record) *kvfile.Record {
	res := kvfile.New()
	for k := range ref.All() {
		if v, ok := rec.Get(k); ok {
			res.SetString(k, v)
		}
	}
	for k, v := range rec.All() {
		res.SetString(k, v)
	}
	return res
}

// CasesCSV writes a table with one row per case: case number,
// then inputs, then outputs. Columns are the union of keys of all cases.
func CasesCSV(w io.Writer, res *driver.Result) error {
	var inKeys, outKeys []string
	seenIn := map[string]bool{}
	seenOut := map[string]bool{}
	for _, c := range res.Cases {
		for k := range c.In.All() {
			if !seenIn[k] {
				seenIn[k] = true
				inKeys = append(inKeys, k)
			}
		}
		for k := range c.Out.All() {
			if !seenOut[k] {
				seenOut[k] = true
				outKeys = append(outKeys, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	hdr := []string{"case"}
	hdr = append(hdr, inKeys...)
	hdr = append(hdr, outKeys...)
	if err := cw.Write(hdr); err != nil {
		return err
	}
	for _, c := range res.Cases {
		row := []string{strconv.Itoa(c.N)}
		for _, k := range inKeys {
			v, _ := c.In.Get(k)
			row = append(row, v)
		}
		for _, k := range outKeys {
			v, _ := c.Out.Get(k)
			row = append(row, v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
