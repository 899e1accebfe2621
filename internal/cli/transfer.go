package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/config"
	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/humanfmt"
	"github.com/eunmann/splat4d/pkg/logging"
	"github.com/eunmann/splat4d/pkg/s3fetch"
	"github.com/spf13/cobra"
)

// newS3Client builds a transfer client from the s3 config section.
func newS3Client(ctx context.Context, cfg *config.Config) (*s3fetch.Client, error) {
	partSize, err := cfg.PartSizeBytes()
	if err != nil {
		return nil, err
	}
	return s3fetch.NewClient(ctx, cfg.S3.Region, s3fetch.TransferConfig{
		Concurrency: cfg.S3.Concurrency,
		PartSize:    partSize,
		TempDir:     cfg.S3.TempDir,
	})
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		output   string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <s3://bucket/key>",
		Short: "Download a container from S3",
		Long: `Download a container from S3 with parallel range requests. The file is
renamed into place only once complete, and by default it is decoded and
checked before the command succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, err := s3fetch.ParseS3URI(args[0])
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("%s names no object", args[0])
			}
			if output == "" {
				output = s3fetch.LocalName(key)
			}

			ctx := logctx.WithStr(cmd.Context(), "object", args[0])
			client, err := newS3Client(ctx, a.cfg)
			if err != nil {
				return err
			}
			res, err := client.Download(ctx, bucket, key, output)
			if err != nil {
				return err
			}
			logging.TransferComplete(logctx.FromContext(ctx), "fetch", res.Duration).
				Str("path", output).
				Bytes("size", res.Bytes).
				Throughput(res.Bytes).
				Log("object downloaded")

			out := cmd.OutOrStdout()
			if validate {
				v, err := a.decodeLocal(ctx, output)
				if err != nil {
					return fmt.Errorf("downloaded %s is not a valid container: %w", output, err)
				}
				v.Release()
			}
			fmt.Fprintf(out, "fetched %s -> %s (%s in %s)\n",
				args[0], output, humanfmt.Bytes(res.Bytes), humanfmt.Duration(res.Duration))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "local path (default: object base name)")
	cmd.Flags().BoolVar(&validate, "validate", true, "decode and check the downloaded container")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var skipValidate bool
	cmd := &cobra.Command{
		Use:   "push <file.4spl> <s3://bucket/key>",
		Short: "Upload a container to S3",
		Long: `Upload a container to S3. The file is decoded and checked first unless
--no-validate is set. A key ending in "/" is treated as a prefix. Dimensions
and the payload checksum are attached as object metadata.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			bucket, key, err := s3fetch.ParseS3URI(args[1])
			if err != nil {
				return err
			}
			if key, err = s3fetch.ObjectKey(key, src); err != nil {
				return err
			}

			ctx := logctx.WithStr(cmd.Context(), "object", "s3://"+bucket+"/"+key)
			metadata := map[string]string{"splat4d-run-id": logctx.RunID(ctx)}
			if !skipValidate {
				v, err := a.decodeLocal(ctx, src)
				if err != nil {
					return err
				}
				metadata = containerMetadata(v, metadata)
				v.Release()
			}

			client, err := newS3Client(ctx, a.cfg)
			if err != nil {
				return err
			}
			start := time.Now()
			res, err := client.Upload(ctx, src, bucket, key, metadata)
			if err != nil {
				return err
			}
			logging.TransferComplete(logctx.FromContext(ctx), "push", time.Since(start)).
				Str("path", src).
				Bytes("size", res.Bytes).
				Throughput(res.Bytes).
				Log("object uploaded")

			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s -> s3://%s/%s (%s)\n",
				src, bucket, key, humanfmt.Bytes(res.Bytes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipValidate, "no-validate", false, "upload without decoding first")
	return cmd
}

// containerMetadata adds the header dimensions and footer checksum of v.
func containerMetadata(v *format.Video, m map[string]string) map[string]string {
	h := v.Header
	m["splat4d-dims"] = humanfmt.Dims(h.Width, h.Height, h.Depth, h.Frames)
	m["splat4d-palette-size"] = fmt.Sprintf("%d", h.PaletteSize)
	m["splat4d-checksum"] = fmt.Sprintf("0x%08X", v.Footer.Checksum)
	return m
}
