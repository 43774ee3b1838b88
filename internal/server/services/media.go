package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	sc "github.com/clipstream/clipstream/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores a media file and returns its public URL. Failures
// propagate to callers as internal errors; the uploader itself never maps
// them.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error)
}

// MediaService stores uploaded media in an S3-compatible object store
// (works against MinIO via the base endpoint override).
type MediaService struct {
	config *sc.Config
}

func NewMediaService(config *sc.Config) *MediaService {
	return &MediaService{config: config}
}

// storageKey spreads objects over date-based prefixes so buckets stay
// listable: folder/YYYY/M/D/<uuid><ext>.
func storageKey(folder, filename string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/%v%s", folder, d.Year(), d.Month(), d.Day(), uuid.New(), strings.ToLower(path.Ext(filename)))
}

func (s *MediaService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload streams body into the bucket and returns the object's URL.
func (s *MediaService) Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := storageKey(folder, filename)

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return "", err
	}

	return s.objectURL(key)
}

func (s *MediaService) objectURL(key string) (string, error) {
	base, err := url.Parse(s.config.S3BaseEndpoint)
	if err != nil {
		return "", err
	}
	base.Path = path.Join(base.Path, s.config.S3Bucket, key)
	return base.String(), nil
}
