// Package archive uploads completed debate transcripts to S3-compatible
// object storage.
package archive

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rebuttal-io/rebuttal/internal/config"
)

// Uploader wraps the S3 client and the target bucket.
type Uploader struct {
	client *s3.Client
	bucket string
}

// NewUploader creates and configures an Uploader. A custom endpoint (MinIO
// and friends) is honored when set.
func NewUploader(cfg *config.Config) (*Uploader, error) {
	var opts []func(*awsConfig.LoadOptions) error

	if cfg.Archive.AccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Archive.AccessKeyID, cfg.Archive.SecretAccessKey, "")))
	}
	if cfg.Archive.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Archive.Region))
	}
	if cfg.Archive.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.Archive.Endpoint,
				SigningRegion: cfg.Archive.Region,
			}, nil
		})
		opts = append(opts, awsConfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, err
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Archive.Bucket,
	}, nil
}

// Upload stores body under key in the configured bucket.
func (u *Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	return err
}
