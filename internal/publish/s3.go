// Package publish uploads finished artifacts to durable object storage and
// produces time-limited retrieval URLs.
package publish

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clipforge/clipforge/internal/fault"
)

// PresignExpiry is how long retrieval URLs stay valid.
const PresignExpiry = time.Hour

const contentType = "video/mp4"

// S3Config holds the configuration for the artifact bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Publisher stores processed clips under videos/{videoId}.mp4.
type S3Publisher struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	region    string
}

// NewS3Publisher creates a new S3Publisher.
func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Publisher{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
	}, nil
}

// Key returns the object key used for a video's artifact.
func Key(videoID string) string {
	return "videos/" + videoID + ".mp4"
}

// Publish uploads the local file and returns its remote URL. Upload
// failures are UploadFailed and eligible for retry; the local file is left
// in place so a retry within the same lease can re-use it.
func (p *S3Publisher) Publish(ctx context.Context, localPath, videoID string) (string, error) {
	file, err := os.Open(localPath) // #nosec G304 - path is produced by the worker
	if err != nil {
		return "", fault.Errorf(fault.CodeUploadFailed, "open artifact: %v", err)
	}
	defer func() { _ = file.Close() }()

	key := Key(videoID)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fault.Errorf(fault.CodeUploadFailed, "upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key), nil
}

// Presign produces a time-limited retrieval URL for a published artifact.
func (p *S3Publisher) Presign(ctx context.Context, remoteURL string) (string, error) {
	key, err := keyFromURL(remoteURL, p.bucket)
	if err != nil {
		return "", err
	}
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}

// Remove deletes a published artifact.
func (p *S3Publisher) Remove(ctx context.Context, remoteURL string) error {
	key, err := keyFromURL(remoteURL, p.bucket)
	if err != nil {
		return err
	}
	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete from S3: %w", err)
	}
	return nil
}

// keyFromURL extracts the object key from a stored remote URL, accepting
// both virtual-hosted and path-style layouts.
func keyFromURL(remoteURL, bucket string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("parse remote URL %q: %w", remoteURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	key = strings.TrimPrefix(key, bucket+"/")
	if key == "" {
		return "", fmt.Errorf("remote URL %q carries no object key", remoteURL)
	}
	return key, nil
}
