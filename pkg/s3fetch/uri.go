package s3fetch

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ContentType is the media type attached to uploaded containers.
const ContentType = "application/x-4spl"

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key, nil
}

// ObjectKey resolves the key to upload localPath under. An empty key or one
// ending in "/" is treated as a prefix and the file's base name is appended.
func ObjectKey(key, localPath string) (string, error) {
	if key != "" && !strings.HasSuffix(key, "/") {
		return key, nil
	}
	base := filepath.Base(localPath)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("cannot derive object name from %q", localPath)
	}
	return path.Join(key, base), nil
}

// LocalName returns the file name to download key to.
func LocalName(key string) string {
	return path.Base(key)
}
