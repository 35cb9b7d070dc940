package kvfile

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a hash of record content. Records that are Equal have
// the same hash regardless of the order of keys.
func (r *Record) Hash() uint64 {
	entries := r.Entries()
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	// lengths make "a=b" => "c" and "a" => "b=c" hash differently
	d := xxhash.New()
	var buf []byte
	for _, e := range entries {
		buf = strconv.AppendInt(buf[:0], int64(len(e.Key)), 10)
		buf = append(buf, ':')
		buf = append(buf, e.Key...)
		buf = strconv.AppendInt(buf, int64(len(e.Value)), 10)
		buf = append(buf, ':')
		buf = append(buf, e.Value...)
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}
