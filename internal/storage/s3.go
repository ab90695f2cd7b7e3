// Package storage uploads donation images to S3. The rest of the system only
// ever sees the storage key, never the content.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ImageStorage struct {
	client *s3.Client
	bucket string
}

func NewImageStorage(client *s3.Client, bucket string) *ImageStorage {
	return &ImageStorage{
		client: client,
		bucket: bucket,
	}
}

// UploadImage stores the image under key and returns the key on success.
func (s *ImageStorage) UploadImage(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", key, err)
	}

	return key, nil
}

// ImageURL builds the public object URL for a stored key.
func (s *ImageStorage) ImageURL(key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// DeleteImage removes a stored image.
func (s *ImageStorage) DeleteImage(ctx context.Context, key string) error {

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}

	return nil
}
