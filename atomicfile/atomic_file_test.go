package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file '%s' doesn't exist, os.Stat() failed with '%s'", path, err)
	}
	if !st.Mode().IsRegular() {
		t.Fatalf("Path '%s' exists but is not a file (mode: %d)", path, int(st.Mode()))
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("file '%s' exist, expected to not exist", path)
	}
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("error: %s", err)
	}
}

func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected to get an error")
	}
}

func assertFileContent(t *testing.T, path string, exp string) {
	t.Helper()
	d, err := os.ReadFile(path)
	assertNoError(t, err)
	if string(d) != exp {
		t.Fatalf("path: '%s', expected content: %q, got: %q", path, exp, string(d))
	}
}

func TestSimulateError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "data.out")
	f, err := New(dst)
	assertNoError(t, err)
	assertFileExists(t, f.tmpPath)
	_, err = f.Write([]byte("foo"))
	assertNoError(t, err)
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
	assertFileNotExists(t, f.tmpPath)
	assertFileNotExists(t, dst)
	// second Close() returns the same error
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
}

func writeWithPanicCancel(t *testing.T, f *File) {
	defer f.RemoveIfNotClosed()

	_, err := f.Write([]byte("foo"))
	assertNoError(t, err)
	panic("simulating a crash")
}

func recoverCancelPanic(t *testing.T, f *File) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected to panic")
		}
	}()
	writeWithPanicCancel(t, f)
}

func TestCancelKeepsPreviousContent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "data.out")
	assertNoError(t, os.WriteFile(dst, []byte("totalkWh=1.0\n"), 0644))
	f, err := New(dst)
	assertNoError(t, err)
	recoverCancelPanic(t, f)
	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "totalkWh=1.0\n")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "data.out")
	{
		f, err := New(dst)
		assertNoError(t, err)
		assertFileExists(t, f.tmpPath)
		assertNoError(t, f.Close())
		assertFileContent(t, dst, "")
		assertFileNotExists(t, f.tmpPath)
	}

	{
		f, err := New(dst)
		assertNoError(t, err)
		n, err := f.WriteString("solarSurfaceArea=0.0\n")
		assertNoError(t, err)
		if n != 21 {
			t.Fatalf("expected 21 bytes written, got %d", n)
		}
		_, err = f.ReadFrom(strings.NewReader("totalkWh=0.0\n"))
		assertNoError(t, err)
		assertNoError(t, f.Close())
		assertFileNotExists(t, f.tmpPath)
		assertFileContent(t, dst, "solarSurfaceArea=0.0\ntotalkWh=0.0\n")
		// calling Close twice is a no-op
		assertNoError(t, f.Close())
	}

	{
		// RemoveIfNotClosed sets an error state
		f, err := New(dst)
		assertNoError(t, err)
		f.RemoveIfNotClosed()
		_, err = f.Write([]byte("x"))
		if err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		if err = f.Close(); err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		assertFileContent(t, dst, "solarSurfaceArea=0.0\ntotalkWh=0.0\n")
	}

	// we can't create files in directories that don't exist
	{
		f, err := New(filepath.Join(dir, "foo", "bar.txt"))
		assertError(t, err)
		if f != nil {
			t.Fatalf("expected f to be nil, got %v", f)
		}
	}
}

func TestWriteFilePerm(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	dst := filepath.Join(dir, "data.out")
	assertNoError(t, WriteFile(dst, []byte("a=1\n")))
	st, err := os.Stat(dst)
	assertNoError(t, err)
	if st.Mode().Perm() != defaultPerm {
		t.Fatalf("expected perm %v, got %v", defaultPerm, st.Mode().Perm())
	}

	assertNoError(t, os.Chmod(dst, 0600))
	assertNoError(t, WriteFile(dst, []byte("a=2\n")))
	st, err = os.Stat(dst)
	assertNoError(t, err)
	if st.Mode().Perm() != 0600 {
		t.Fatalf("expected perm 0600 to be kept, got %v", st.Mode().Perm())
	}
	assertFileContent(t, dst, "a=2\n")
}

func TestNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "data.out")
	for range 3 {
		assertNoError(t, WriteFile(dst, []byte("k=v\n")))
	}
	entries, err := os.ReadDir(dir)
	assertNoError(t, err)
	if len(entries) != 1 {
		t.Fatalf("expected only destination file, got %d entries", len(entries))
	}
}
