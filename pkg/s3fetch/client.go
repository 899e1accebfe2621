// Package s3fetch moves .4spl containers between local disk and S3.
package s3fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client provides S3 operations for containers.
type Client struct {
	s3Client *s3.Client
	transfer TransferConfig
}

// NewClient creates a new S3 client using default AWS configuration. A
// non-empty region overrides the resolved one.
func NewClient(ctx context.Context, region string, tc TransferConfig) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(cfg, tc), nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config, tc TransferConfig) *Client {
	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		transfer: tc.withDefaults(),
	}
}

// StreamObject returns a reader for an S3 object. The caller closes it.
func (c *Client) StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

// Transfer returns the effective transfer settings.
func (c *Client) Transfer() TransferConfig {
	return c.transfer
}
