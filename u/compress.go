package u

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies compression format implied by file extension
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionZstd
	CompressionBrotli
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionZstd:
		return "zstd"
	case CompressionBrotli:
		return "brotli"
	}
	return "none"
}

// CompressionFromPath returns compression based on file extension
// TODO: could sniff file content instead of checking file extension
func CompressionFromPath(path string) Compression {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	case ".zst", ".zstd":
		return CompressionZstd
	case ".br":
		return CompressionBrotli
	}
	return CompressionNone
}

// implements io.ReadCloser over a decompressing reader.
// Close() releases the decompressor and closes the underlying reader
// if it's an io.Closer
type decompressReader struct {
	src   io.Reader
	r     io.Reader
	close func()
}

func (rc *decompressReader) Close() error {
	if rc.close != nil {
		rc.close()
	}
	if c, ok := rc.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (rc *decompressReader) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// NewReaderMaybeCompressed wraps r in a decompressor chosen by the
// extension of path
func NewReaderMaybeCompressed(r io.Reader, path string) (io.ReadCloser, error) {
	rc := &decompressReader{src: r, r: r}
	switch CompressionFromPath(path) {
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		rc.r = gr
	case CompressionBzip2:
		rc.r = bzip2.NewReader(r)
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		rc.r = zr
		rc.close = zr.Close
	case CompressionBrotli:
		rc.r = brotli.NewReader(r)
	}
	return rc, nil
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or bzip2 or zstd or brotli
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewReaderMaybeCompressed(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// ReadFileMaybeCompressed reads file. Decompresses if needed.
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewWriterMaybeCompressed wraps w in a compressor chosen by the
// extension of path. Close() flushes the compressor but doesn't close w.
func NewWriterMaybeCompressed(w io.Writer, path string) (io.WriteCloser, error) {
	c := CompressionFromPath(path)
	switch c {
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionZstd:
		return zstdNewWriter(w)
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case CompressionBzip2:
		return nil, fmt.Errorf("writing %s files is not supported", c)
	}
	return nopWriteCloser{w}, nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// in my tests:
	// - zstd.SpeedBestCompression is much slower and not much better
	// - default concurrency is GONUMPROCS() but adding concurrency of any value
	//   doesn't consistently speed things up
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
}
