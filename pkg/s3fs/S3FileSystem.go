// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package s3fs provides the evfs driver for objects stored in AWS S3 or a compatible service.
package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "s3"
	Scheme     = "s3://"
)

// S3FileSystem reads objects below a bucket and an optional key prefix, given as s3://bucket/prefix.
type S3FileSystem struct {
	client  Client
	source  string
	bucket  string
	prefix  string
	options driver.ReadOptions
}

var _ driver.Driver = (*S3FileSystem)(nil)

// Parse returns the bucket and key prefix of an s3:// source.
func Parse(source string) (string, string, error) {
	if !strings.HasPrefix(source, Scheme) {
		return "", "", fmt.Errorf("invalid source %q, must start with %q", source, Scheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(source, Scheme), "/", 2)
	bucket := parts[0]
	if len(bucket) == 0 {
		return "", "", fmt.Errorf("invalid source %q, bucket is missing", source)
	}
	prefix := ""
	if len(parts) > 1 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}

func (s3fs *S3FileSystem) Name() string {
	return DriverName
}

func (s3fs *S3FileSystem) Bucket() string {
	return s3fs.bucket
}

func (s3fs *S3FileSystem) Prefix() string {
	return s3fs.prefix
}

func (s3fs *S3FileSystem) key(name string) string {
	name = strings.Trim(name, "/")
	if len(s3fs.prefix) == 0 {
		return name
	}
	if len(name) == 0 {
		return s3fs.prefix
	}
	return path.Join(s3fs.prefix, name)
}

func (s3fs *S3FileSystem) IsNotExist(err error) bool {
	var responseError *http.ResponseError
	if errors.As(err, &responseError) {
		if responseError.HTTPStatusCode() == 404 {
			return true
		}
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// CanMount accepts s3:// sources naming a bucket.  It does not contact the service.
func (s3fs *S3FileSystem) CanMount(target string, source string) error {
	if _, _, err := Parse(source); err != nil {
		return driver.NewUnsupportedMountError(source)
	}
	return nil
}

func (s3fs *S3FileSystem) NewFromSource(source string) (driver.Driver, error) {
	bucket, prefix, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return &S3FileSystem{
		client:  s3fs.client,
		source:  source,
		bucket:  bucket,
		prefix:  prefix,
		options: s3fs.options,
	}, nil
}

func (s3fs *S3FileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	return nil, driver.ErrBlobUnsupported
}

func (s3fs *S3FileSystem) Size(ctx context.Context, name string) (int64, error) {
	headObjectOutput, err := s3fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.key(name)),
	})
	if err != nil {
		return int64(0), err
	}
	return headObjectOutput.ContentLength, nil
}

// HasEntry probes the object first and then the common prefix, since S3 has no directories of its own.
func (s3fs *S3FileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	if len(s3fs.bucket) == 0 {
		return driver.EntryTypeNotFound
	}
	key := s3fs.key(name)
	if len(key) == 0 {
		return driver.EntryTypeDirectory
	}
	if len(strings.Trim(name, "/")) > 0 {
		if _, err := s3fs.Size(ctx, name); err == nil {
			return driver.EntryTypeFile
		}
	}
	listObjectsOutput, err := s3fs.client.ListObjects(ctx, &s3.ListObjectsInput{
		Bucket:    aws.String(s3fs.bucket),
		Prefix:    aws.String(key + "/"),
		Delimiter: aws.String("/"),
		MaxKeys:   1,
	})
	if err != nil {
		return driver.EntryTypeNotFound
	}
	if len(listObjectsOutput.Contents) > 0 || len(listObjectsOutput.CommonPrefixes) > 0 {
		return driver.EntryTypeDirectory
	}
	return driver.EntryTypeNotFound
}

func (s3fs *S3FileSystem) SupportsFileExt(name string) bool {
	return driver.MatchName(name, driver.ArchivePatterns...)
}

func (s3fs *S3FileSystem) CanDecompress(data []byte) bool {
	return false
}

// Open returns a reader that fetches the object with ranged requests.
func (s3fs *S3FileSystem) Open(ctx context.Context, name string) (*ObjectReader, error) {
	size, err := s3fs.Size(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewObjectReader(ctx, s3fs.client, s3fs.bucket, s3fs.key(name), size), nil
}

func (s3fs *S3FileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	r, err := s3fs.Open(ctx, name)
	if err != nil {
		if s3fs.IsNotExist(err) {
			return nil, driver.NewFileError(name, fmt.Errorf("error getting object %q: %w", s3fs.key(name), fs.ErrNotExist))
		}
		return nil, driver.NewFileError(name, fmt.Errorf("error getting object %q: %w", s3fs.key(name), err))
	}
	data, err := driver.ReadAll(r, r.Size(), s3fs.options, progress)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	return data, nil
}

// New returns an S3 template issuing requests through client.
func New(client Client, options driver.ReadOptions) *S3FileSystem {
	return &S3FileSystem{
		client:  client,
		options: options.Normalize(),
	}
}
