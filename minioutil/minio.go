// Package minioutil stores record files in S3-compatible storage.
// Remote paths ending in .gz, .zst or .br are stored compressed.
package minioutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/modelrun/atomicfile"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local test servers
	Insecure     bool
	RequestTrace io.Writer
}

// ConfigFromEnv reads config from ${prefix}ACCESS, ${prefix}SECRET,
// ${prefix}BUCKET, ${prefix}ENDPOINT, ${prefix}REGION and ${prefix}INSECURE
func ConfigFromEnv(prefix string) *Config {
	return &Config{
		Access:   os.Getenv(prefix + "ACCESS"),
		Secret:   os.Getenv(prefix + "SECRET"),
		Bucket:   os.Getenv(prefix + "BUCKET"),
		Endpoint: os.Getenv(prefix + "ENDPOINT"),
		Region:   os.Getenv(prefix + "REGION"),
		Insecure: os.Getenv(prefix+"INSECURE") == "1",
	}
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide all fields in config")
	}
	return nil
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

// New connects to the storage and checks that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		config: c,
		Bucket: c.Bucket,
	}, nil
}

func (c *Client) URLBase() string {
	url := c.Client.EndpointURL()
	return fmt.Sprintf("%s://%s.%s/", url.Scheme, c.Bucket, url.Host)
}

func (c *Client) URLForPath(remotePath string) string {
	return c.URLBase() + strings.TrimPrefix(remotePath, "/")
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

func (c *Client) Remove(ctx context.Context, remotePath string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, minio.RemoveObjectOptions{})
}

// List returns paths of objects starting with prefix
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []string
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		res = append(res, oi.Key)
	}
	return res, nil
}

// contentType returns mime type for remotePath. Record files are text,
// compressed ones are described by their compression.
func contentType(remotePath string) string {
	switch u.CompressionFromPath(remotePath) {
	case u.CompressionGzip:
		return "application/gzip"
	case u.CompressionBzip2:
		return "application/x-bzip2"
	case u.CompressionZstd:
		return "application/zstd"
	case u.CompressionBrotli:
		return "application/x-brotli"
	}
	ext := strings.ToLower(filepath.Ext(remotePath))
	switch ext {
	case ".in", ".out", "":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// encodeRecord serializes rec, compressed if remotePath says so
func encodeRecord(remotePath string, rec *kvfile.Record) ([]byte, error) {
	d, err := kvfile.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := u.NewWriterMaybeCompressed(&buf, remotePath)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(d); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(remotePath string, r io.Reader) (*kvfile.Record, error) {
	rc, err := u.NewReaderMaybeCompressed(r, remotePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return kvfile.Decode(rc)
}

func (c *Client) UploadData(ctx context.Context, remotePath string, d []byte) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentType(remotePath),
	}
	r := bytes.NewReader(d)
	return c.Client.PutObject(ctx, c.Bucket, remotePath, r, int64(len(d)), opts)
}

// UploadRecord stores rec at remotePath
func (c *Client) UploadRecord(ctx context.Context, remotePath string, rec *kvfile.Record) (minio.UploadInfo, error) {
	d, err := encodeRecord(remotePath, rec)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	return c.UploadData(ctx, remotePath, d)
}

// DownloadRecord reads a record stored at remotePath
func (c *Client) DownloadRecord(ctx context.Context, remotePath string) (*kvfile.Record, error) {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	rec, err := decodeRecord(remotePath, obj)
	if err != nil {
		return nil, fmt.Errorf("reading '%s' failed with '%w'", remotePath, err)
	}
	return rec, nil
}

// UploadFile uploads local file as is
func (c *Client) UploadFile(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentType(remotePath),
	}
	return c.Client.FPutObject(ctx, c.Bucket, remotePath, path, opts)
}

// DownloadFileAtomically downloads remotePath to dstPath. On failure
// dstPath is not modified.
func (c *Client) DownloadFileAtomically(ctx context.Context, dstPath string, remotePath string) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	// ensure there's a dir for destination file
	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = io.Copy(f, obj); err != nil {
		return err
	}
	return f.Close()
}
