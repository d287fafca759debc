package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const spacesExpiresKey = "Expires-At"

// SpacesStore keeps each value as a small object in a Digital Ocean Spaces
// (or any S3 compatible) bucket. Expiry is recorded in object metadata and
// enforced on read.
type SpacesStore struct {
	client     s3iface.S3API
	bucket     string
	pathPrefix string
	now        func() time.Time
}

// NewSpacesStore creates a store backed by Spaces
func NewSpacesStore(config SpacesConfig) (*SpacesStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:    aws.String(config.Endpoint),
		Region:      aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return NewSpacesStoreFromClient(s3.New(sess), config.Bucket, config.PathPrefix), nil
}

// NewSpacesStoreFromClient wraps an existing S3 API client
func NewSpacesStoreFromClient(client s3iface.S3API, bucket, pathPrefix string) *SpacesStore {
	if pathPrefix != "" && !strings.HasSuffix(pathPrefix, "/") {
		pathPrefix += "/"
	}
	return &SpacesStore{
		client:     client,
		bucket:     bucket,
		pathPrefix: pathPrefix,
		now:        time.Now,
	}
}

func (s *SpacesStore) objectKey(key string) string {
	return s.pathPrefix + key
}

// Get downloads the object stored under key
func (s *SpacesStore) Get(ctx context.Context, key string) (string, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isMissingObject(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer result.Body.Close()

	if raw, ok := result.Metadata[spacesExpiresKey]; ok && raw != nil {
		expiresAt, err := time.Parse(time.RFC3339, *raw)
		if err == nil && !s.now().Before(expiresAt) {
			_ = s.Delete(ctx, key)
			return "", ErrNotFound
		}
	}

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return string(data), nil
}

// Set uploads value as a text object
func (s *SpacesStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	metadata := map[string]*string{
		"Stored-At": aws.String(s.now().UTC().Format(time.RFC3339)),
	}
	if ttl > 0 {
		metadata[spacesExpiresKey] = aws.String(s.now().Add(ttl).UTC().Format(time.RFC3339))
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        strings.NewReader(value),
		Metadata:    metadata,
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	return nil
}

// Delete removes the object stored under key
func (s *SpacesStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isMissingObject(err) {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the S3 client holds no long-lived connections
func (s *SpacesStore) Close() error {
	return nil
}

func isMissingObject(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}
