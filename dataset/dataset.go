// Package dataset resolves the companies parquet source to a local file.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound is returned when the remote object does not exist.
var ErrNotFound = errors.New("dataset not found")

const s3Scheme = "s3://"

// Downloader fetches one S3 object into w. *manager.Downloader satisfies it.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// Fetcher downloads s3:// sources.
type Fetcher struct {
	downloader Downloader
}

// NewFetcher returns a Fetcher using the default AWS credential chain.
func NewFetcher(ctx context.Context) (*Fetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFetcherWithDownloader(manager.NewDownloader(s3.NewFromConfig(cfg))), nil
}

// NewFetcherWithDownloader returns a Fetcher using d.
func NewFetcherWithDownloader(d Downloader) *Fetcher {
	return &Fetcher{downloader: d}
}

// IsRemote reports whether source is an s3:// URI.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, s3Scheme)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsRemote(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 uri must name a bucket and an object: %q", uri)
	}
	return bucket, key, nil
}

// Fetch downloads an s3:// source into dir and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, source, dir string) (string, error) {
	bucket, key, err := ParseS3URI(source)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	dst := filepath.Join(dir, path.Base(key))
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = f.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return "", fmt.Errorf("download %s: %w", source, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move download: %w", err)
	}
	return dst, nil
}

// Resolve returns a path DuckDB can read. Local paths are returned unchanged;
// s3:// sources are downloaded into dir with a default Fetcher.
func Resolve(ctx context.Context, source, dir string) (string, error) {
	if !IsRemote(source) {
		return source, nil
	}
	f, err := NewFetcher(ctx)
	if err != nil {
		return "", err
	}
	return f.Fetch(ctx, source, dir)
}
