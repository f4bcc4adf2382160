package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps snapshots in an S3-compatible bucket (AWS S3, MinIO, etc.).
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ SnapshotStorage = (*S3Store)(nil)

type S3Options struct {
	Client *s3.Client
	Bucket string
	Prefix string // optional key prefix, e.g. "imgfs/"
}

func NewS3Store(opts S3Options) *S3Store {
	return &S3Store{
		client: opts.Client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix != "" {
		return s.prefix + key
	}
	return key
}

func (s *S3Store) Put(ctx context.Context, name string, r io.Reader) (Snapshot, error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}
	// Spool to a temp file first to compute the digest and get a seekable body.
	tmpFile, err := os.CreateTemp("", "s3-snapshot-*")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create tmp file: %w", err)
	}
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()

	sum, n, err := hashingCopy(tmpFile, r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write tmp snapshot: %w", err)
	}
	snap := Snapshot{
		Digest: "sha256:" + hex.EncodeToString(sum),
		Size:   n,
		Key:    snapshotKey(name, sum),
	}

	exists, err := s.exists(ctx, snap.Key)
	if err != nil {
		return Snapshot{}, err
	}
	if exists {
		snap.Reused = true
		return snap, nil
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return Snapshot{}, fmt.Errorf("seek tmp file: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(snap.Key)),
		Body:          tmpFile,
		ContentLength: aws.Int64(n),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      map[string]string{"sha256": hex.EncodeToString(sum)},
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("s3 put: %w", err)
	}
	return snap, nil
}

func (s *S3Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head %q: %w", key, err)
}

func (s *S3Store) Open(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	return &Object{ReadCloser: resp.Body, Size: aws.ToInt64(resp.ContentLength)}, nil
}
