package remotestore

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the minio-backed store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps the project layout in one bucket. The fingerprint is the
// content MD5, which matches the S3 ETag for single-part puts. Its
// conflict check is read-compare-then-put, a wider race window than the
// github backend's server-side sha check; acceptable at this workload's
// write concurrency.
type S3Store struct {
	client *minio.Client
	bucket string
	region string

	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) Read(ctx context.Context, path string) (File, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return File{}, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, normalizePath(path), minio.GetObjectOptions{})
	if err != nil {
		return File{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return File{Content: data, Fingerprint: md5Fingerprint(data)}, nil
}

func (s *S3Store) Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	key := normalizePath(path)

	// Serialize the compare step against same-process writers.
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Read(ctx, path)
	switch {
	case err == nil:
		if fingerprint == "" || fingerprint != cur.Fingerprint {
			return "", ErrConflict
		}
	case errors.Is(err, ErrNotFound):
		if fingerprint != "" {
			return "", ErrNotFound
		}
	default:
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", err
	}
	return md5Fingerprint(content), nil
}

func (s *S3Store) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := normalizePath(dir)
	if prefix != "" {
		prefix += "/"
	}
	entries := make([]Entry, 0, 16)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(name, "/")
		entries = append(entries, Entry{Name: strings.TrimSuffix(name, "/"), IsDir: isDir})
	}
	return entries, nil
}

func md5Fingerprint(content []byte) string {
	sum := md5.Sum(content)
	return fmt.Sprintf("%x", sum)
}
