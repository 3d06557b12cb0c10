package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Archive keeps raw uploaded recipient files in an S3 bucket.
type S3Archive struct {
	client S3API
	bucket string
}

// NewS3Archive creates an archive on bucket.
func NewS3Archive(client S3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Put uploads body under key.
func (a *S3Archive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3 bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (a *S3Archive) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting object from S3 bucket %s: %w", a.bucket, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return data, nil
}

// Ping checks that the bucket is reachable.
func (a *S3Archive) Ping(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	return err
}

// LocalArchive keeps raw uploads under a directory on local disk.
type LocalArchive struct {
	root string
}

// NewLocalArchive creates root if needed and returns an archive on it.
func NewLocalArchive(root string) (*LocalArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &LocalArchive{root: root}, nil
}

func (a *LocalArchive) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(a.root, filepath.FromSlash(key)), nil
}

// Put writes body to <root>/<key>.
func (a *LocalArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	p, err := a.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.WriteFile(p, body, 0644); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}
	return nil
}

// Get reads <root>/<key>.
func (a *LocalArchive) Get(_ context.Context, key string) ([]byte, error) {
	p, err := a.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive file: %w", err)
	}
	return data, nil
}
