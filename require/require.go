// Package require is like github.com/alecthomas/assert but stops the test
// on the first failed check. Use it when the rest of a test makes no sense
// after a failure (e.g. a nil record).
package require

import (
	"testing"

	"github.com/alecthomas/assert"
)

// failNowIf calls t.FailNow() if fn marked the test as failed
func failNowIf(t testing.TB, fn func()) {
	t.Helper()
	failed := t.Failed()
	fn()
	if !failed && t.Failed() {
		t.FailNow()
	}
}

// Len asserts that the specified object has specific length.
//
//	require.Len(t, mySlice, 3)
func Len(t testing.TB, object any, length int, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.Len(t, object, length, msgAndArgs...) })
}

// Nil asserts that the specified object is nil.
//
//	require.Nil(t, err)
func Nil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.Nil(t, object, msgAndArgs...) })
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.NotNil(t, object, msgAndArgs...) })
}

// NoError asserts that a function returned no error.
//
//	rec, err := kvfile.Read(path)
//	require.NoError(t, err)
func NoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.NoError(t, err, msgAndArgs...) })
}

// Error asserts that a function returned an error.
func Error(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.Error(t, err, msgAndArgs...) })
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, 123, 123)
func Equal(t testing.TB, expected any, actual any, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.Equal(t, expected, actual, msgAndArgs...) })
}

// NotEqual asserts that the specified values are NOT equal.
func NotEqual(t testing.TB, expected any, actual any, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.NotEqual(t, expected, actual, msgAndArgs...) })
}

// True asserts that the specified value is true.
func True(t testing.TB, value bool, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.True(t, value, msgAndArgs...) })
}

// False asserts that the specified value is false.
func False(t testing.TB, value bool, msgAndArgs ...any) {
	t.Helper()
	failNowIf(t, func() { assert.False(t, value, msgAndArgs...) })
}
