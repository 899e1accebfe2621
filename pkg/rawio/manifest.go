package rawio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/splat4d/pkg/fileutil"
	"github.com/eunmann/splat4d/pkg/format"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// Manifest records where a decoded container's arrays were exported and the
// digests needed to check them later.
type Manifest struct {
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	RunID       string              `json:"run_id,omitempty"`
	Source      string              `json:"source"`
	Width       uint32              `json:"width"`
	Height      uint32              `json:"height"`
	Depth       uint32              `json:"depth"`
	Frames      uint32              `json:"frames"`
	PaletteSize uint32              `json:"palette_size"`
	Flags       uint32              `json:"flags"`
	Checksum    uint32              `json:"checksum"`
	Files       map[string]FileInfo `json:"files"`
}

// FileInfo describes a single exported file. Names are relative to the
// manifest's directory.
type FileInfo struct {
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"` // SHA-256 hex
	Kind     string `json:"kind"`
}

// NewManifest starts a manifest describing v, decoded from source.
func NewManifest(source string, v *format.Video) *Manifest {
	h := v.Header
	return &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Width:       h.Width,
		Height:      h.Height,
		Depth:       h.Depth,
		Frames:      h.Frames,
		PaletteSize: h.PaletteSize,
		Flags:       uint32(h.Flags),
		Checksum:    v.Footer.Checksum,
		Files:       make(map[string]FileInfo),
	}
}

// AddFile digests path and records it relative to the manifest directory.
func (m *Manifest) AddFile(manifestDir, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	checksum, err := checksumFile(path)
	if err != nil {
		return fmt.Errorf("checksum %s: %w", path, err)
	}
	name, err := filepath.Rel(manifestDir, path)
	if err != nil {
		name = path
	}
	m.Files[name] = FileInfo{
		Size:     info.Size(),
		Checksum: checksum,
		Kind:     KindOf(path).String(),
	}
	return nil
}

// WriteManifest writes m as indented JSON, atomically.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0644)
	})
}

// ReadManifest reads a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("manifest version %d, want %d", m.Version, ManifestVersion)
	}
	return &m, nil
}

// VerifyManifest checks that every listed file, resolved against dir, has
// the recorded size and digest.
func VerifyManifest(dir string, m *Manifest) error {
	for name, info := range m.Files {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}

		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("file %s: %w", name, err)
		}
		if stat.Size() != info.Size {
			return fmt.Errorf("file %s: size mismatch (got %d, want %d)",
				name, stat.Size(), info.Size)
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return fmt.Errorf("checksum %s: %w", name, err)
		}
		if checksum != info.Checksum {
			return fmt.Errorf("file %s: checksum mismatch", name)
		}
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
