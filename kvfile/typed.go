package kvfile

import (
	"fmt"
	"strconv"
	"strings"
)

func (r *Record) mustGet(key string) (string, error) {
	v, ok := r.Get(key)
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrMissingKey, key)
	}
	return v, nil
}

// GetString returns value of key or ErrMissingKey
func (r *Record) GetString(key string) (string, error) {
	return r.mustGet(key)
}

// Float parses value of key as float64
func (r *Record) Float(key string) (float64, error) {
	v, err := r.mustGet(key)
	if err != nil {
		return 0, err
	}
	return parseFloat(key, v)
}

// FloatOr is like Float but returns def if key is missing.
// Malformed value is still an error.
func (r *Record) FloatOr(key string, def float64) (float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return def, nil
	}
	return parseFloat(key, v)
}

func parseFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &ValueError{Key: key, Value: v, Type: "float64", Err: err}
	}
	return f, nil
}

// Int parses value of key as base 10 int64
func (r *Record) Int(key string) (int64, error) {
	v, err := r.mustGet(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, &ValueError{Key: key, Value: v, Type: "int64", Err: err}
	}
	return n, nil
}

// Bool parses value of key as bool (1, t, true, True, 0, f, false, False etc.)
func (r *Record) Bool(key string) (bool, error) {
	v, err := r.mustGet(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, &ValueError{Key: key, Value: v, Type: "bool", Err: err}
	}
	return b, nil
}

// Floats returns all values that parse as float64, keyed by key
func (r *Record) Floats() map[string]float64 {
	res := map[string]float64{}
	for k, v := range r.All() {
		if f, err := parseFloat(k, v); err == nil {
			res[k] = f
		}
	}
	return res
}
