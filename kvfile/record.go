package kvfile

import (
	"fmt"
	"iter"
)

// Entry is a single key / value pair
type Entry struct {
	Key   string
	Value string
}

// Record is an ordered list of unique keys with string values.
// Zero value is an empty record ready to use.
type Record struct {
	entries []Entry
	// key => index in entries
	index map[string]int
}

// New returns an empty record
func New() *Record {
	return &Record{}
}

// FromPairs creates a record from key, value, key, value... arguments.
// Keys and values are converted with ToString.
func FromPairs(args ...any) (*Record, error) {
	n := len(args)
	if n%2 != 0 {
		return nil, fmt.Errorf("invalid number of args: %d. Should be multiple of 2", n)
	}
	r := New()
	for i := 0; i < n; i += 2 {
		r.SetString(ToString(args[i]), ToString(args[i+1]))
	}
	return r, nil
}

// Len returns number of entries
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Get returns a value for a given key
func (r *Record) Get(key string) (string, bool) {
	if r == nil || r.index == nil {
		return "", false
	}
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.entries[i].Value, true
}

// Has returns true if key is in the record
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// SetString sets the value for a key. A new key is appended at the end,
// an existing key is updated in place.
// Returns true if a new key was added.
func (r *Record) SetString(key, val string) bool {
	if r.index == nil {
		r.index = map[string]int{}
	}
	if i, ok := r.index[key]; ok {
		r.entries[i].Value = val
		return false
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: key, Value: val})
	return true
}

// Set is like SetString but converts v with ToString
func (r *Record) Set(key string, v any) bool {
	return r.SetString(key, ToString(v))
}

// Delete removes key, returns false if it wasn't there
func (r *Record) Delete(key string) bool {
	if r == nil || r.index == nil {
		return false
	}
	i, ok := r.index[key]
	if !ok {
		return false
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.index, key)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].Key] = j
	}
	return true
}

// Keys returns keys in record order
func (r *Record) Keys() []string {
	res := make([]string, 0, r.Len())
	for _, e := range r.Entries() {
		res = append(res, e.Key)
	}
	return res
}

// Entries returns a copy of entries in record order
func (r *Record) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// All iterates over key / value pairs in record order
func (r *Record) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if r == nil {
			return
		}
		for _, e := range r.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Clone returns a deep copy
func (r *Record) Clone() *Record {
	res := New()
	for k, v := range r.All() {
		res.SetString(k, v)
	}
	return res
}

// Merge sets all entries of other in r
func (r *Record) Merge(other *Record) {
	for k, v := range other.All() {
		r.SetString(k, v)
	}
}

// Equal returns true if both records have the same keys with the
// same values. Order of keys doesn't matter.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for k, v := range r.All() {
		v2, ok := other.Get(k)
		if !ok || v != v2 {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	d, err := Marshal(r)
	if err != nil {
		return fmt.Sprintf("%v", r.Entries())
	}
	return string(d)
}
