package kvfile

import (
	"errors"

	"github.com/kjk/modelrun/atomicfile"
	"github.com/kjk/modelrun/u"
)

// Read reads a record from file at path.
// Returns *Error of kind ErrFileNotFound if the file can't be opened or read
// and of kind ErrFormat if the content is malformed.
func Read(path string) (*Record, error) {
	f, err := u.OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, &Error{Kind: ErrFileNotFound, Path: path, Err: err}
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, withPath(err, path)
		}
		return nil, &Error{Kind: ErrFileNotFound, Path: path, Err: err}
	}
	return rec, nil
}

// Write atomically replaces file at path with rec.
// Returns *Error of kind ErrFormat if rec can't be serialized (nothing is
// written) and of kind ErrWrite if writing failed (previous content of the
// file, if any, is kept).
func Write(path string, rec *Record) error {
	d, err := Marshal(rec)
	if err != nil {
		return withPath(err, path)
	}
	return writeData(path, d)
}

func writeData(path string, d []byte) (err error) {
	defer func() {
		if err != nil {
			err = &Error{Kind: ErrWrite, Path: path, Err: err}
		}
	}()

	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	w, err := u.NewWriterMaybeCompressed(f, path)
	if err != nil {
		return err
	}
	if _, err = w.Write(d); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return f.Close()
}
