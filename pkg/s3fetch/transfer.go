package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/fileutil"
)

// TransferConfig configures multipart downloads and uploads.
type TransferConfig struct {
	// Concurrency is the number of parts in flight. Default: NumCPU
	// clamped to [4, 16].
	Concurrency int

	// PartSize is the size of each part in bytes. Default: 16MiB. Uploads
	// never use less than the S3 minimum of 5MiB.
	PartSize int64

	// TempDir holds partial downloads. Empty means next to the destination,
	// so the final rename stays on one filesystem.
	TempDir string
}

// DefaultTransferConfig returns defaults based on the current machine.
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		Concurrency: min(max(runtime.NumCPU(), 4), 16),
		PartSize:    16 * 1024 * 1024,
	}
}

func (tc TransferConfig) withDefaults() TransferConfig {
	def := DefaultTransferConfig()
	if tc.Concurrency <= 0 {
		tc.Concurrency = def.Concurrency
	}
	if tc.PartSize <= 0 {
		tc.PartSize = def.PartSize
	}
	return tc
}

func (tc TransferConfig) uploadPartSize() int64 {
	return max(tc.PartSize, manager.MinUploadPartSize)
}

// TransferResult describes a completed transfer.
type TransferResult struct {
	Bucket      string
	Key         string
	Bytes       int64
	Duration    time.Duration
	Concurrency int
	PartSize    int64
	// Location is the object URL reported by S3 for uploads.
	Location string
}

// Download fetches s3://bucket/key to destPath using parallel range
// requests. The object lands in a temporary file first and is renamed into
// place only after the download completes.
func (c *Client) Download(ctx context.Context, bucket, key, destPath string) (*TransferResult, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)

	mgr := manager.NewDownloader(c.s3Client, func(d *manager.Downloader) {
		d.Concurrency = c.transfer.Concurrency
		d.PartSize = c.transfer.PartSize
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(c.transfer.PartSize))
	})

	tmpDir := c.transfer.TempDir
	if tmpDir == "" {
		tmpDir = filepath.Dir(destPath)
	}

	var n int64
	err := fileutil.WriteTmpThenMove(tmpDir, destPath, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		defer f.Close()

		n, err = mgr.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &TransferResult{
		Bucket:      bucket,
		Key:         key,
		Bytes:       n,
		Duration:    time.Since(start),
		Concurrency: c.transfer.Concurrency,
		PartSize:    c.transfer.PartSize,
	}
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", n).
		Dur("elapsed", res.Duration).
		Msg("downloaded object")
	return res, nil
}

// Upload sends srcPath to s3://bucket/key with the given user metadata.
func (c *Client) Upload(ctx context.Context, srcPath, bucket, key string, metadata map[string]string) (*TransferResult, error) {
	start := time.Now()
	log := logctx.FromContext(ctx)

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", srcPath, err)
	}

	partSize := c.transfer.uploadPartSize()
	uploader := manager.NewUploader(c.s3Client, func(u *manager.Uploader) {
		u.Concurrency = c.transfer.Concurrency
		u.PartSize = partSize
	})

	out, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType),
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s to s3://%s/%s: %w", srcPath, bucket, key, err)
	}

	res := &TransferResult{
		Bucket:      bucket,
		Key:         key,
		Bytes:       info.Size(),
		Duration:    time.Since(start),
		Concurrency: c.transfer.Concurrency,
		PartSize:    partSize,
		Location:    out.Location,
	}
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", res.Bytes).
		Str("location", out.Location).
		Msg("uploaded object")
	return res, nil
}
