// Package remote mirrors media cache payloads to an S3-compatible
// bucket via a custom endpoint resolver and static credentials, so any
// S3-API-compatible object store (not just AWS) can serve as the
// shared mirror target.
package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3-compatible mirror, matching
// config.RemoteConfig's field names.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Client mirrors mediacache.Mirror's Upload contract against an
// S3-compatible bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a Client from cfg using a static-credentials provider and
// a fixed endpoint, bypassing the SDK's region-based endpoint
// discovery entirely.
func New(ctx context.Context, cfg Config) (*Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: cfg.Endpoint}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("remote: load SDK config: %w", err)
	}

	return &Client{s3: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

// Upload streams the file at path to "media/<key><ext>" in the
// configured bucket, satisfying mediacache.Mirror.
func (c *Client) Upload(ctx context.Context, key string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("remote: open payload: %w", err)
	}
	defer f.Close()

	objectKey := fmt.Sprintf("media/%s%s", key, filepath.Ext(path))
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("remote: upload %s: %w", objectKey, err)
	}
	return nil
}
