package rawio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eunmann/splat4d/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportedManifest(t *testing.T) (string, *Manifest) {
	t.Helper()
	dir := t.TempDir()

	h := format.MakeHeader(3, 1, 1, 1, 3, 0)
	v, err := format.NewVideo(h, testPalette(), []uint64{2, 1, 0})
	require.NoError(t, err)
	v.Footer.Checksum = 0xCAFEF00D

	palettePath := filepath.Join(dir, "palette.zst")
	indexPath := filepath.Join(dir, "index.bin")
	require.NoError(t, SavePalette(palettePath, v.Palette))
	require.NoError(t, SaveIndex(indexPath, v.Index))

	m := NewManifest("clip.4spl", v)
	require.NoError(t, m.AddFile(dir, palettePath))
	require.NoError(t, m.AddFile(dir, indexPath))
	return dir, m
}

func TestManifestRoundTrip(t *testing.T) {
	dir, m := exportedManifest(t)
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(path, m))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Width)
	assert.Equal(t, uint32(3), got.PaletteSize)
	assert.Equal(t, uint32(0x4), got.Flags)
	assert.Equal(t, uint32(0xCAFEF00D), got.Checksum)
	assert.Equal(t, "clip.4spl", got.Source)
	require.Contains(t, got.Files, "palette.zst")
	assert.Equal(t, "zstd", got.Files["palette.zst"].Kind)
	assert.Len(t, got.Files["index.bin"].Checksum, 64)

	require.NoError(t, VerifyManifest(dir, got))
}

func TestVerifyManifestDetectsChanges(t *testing.T) {
	t.Run("modified content", func(t *testing.T) {
		dir, m := exportedManifest(t)
		indexPath := filepath.Join(dir, "index.bin")
		data, err := os.ReadFile(indexPath)
		require.NoError(t, err)
		data[0] ^= 0x01
		require.NoError(t, os.WriteFile(indexPath, data, 0644))

		err = VerifyManifest(dir, m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})

	t.Run("truncated", func(t *testing.T) {
		dir, m := exportedManifest(t)
		require.NoError(t, os.Truncate(filepath.Join(dir, "index.bin"), 8))

		err := VerifyManifest(dir, m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "size mismatch")
	})

	t.Run("missing", func(t *testing.T) {
		dir, m := exportedManifest(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "palette.zst")))
		require.Error(t, VerifyManifest(dir, m))
	})
}

func TestReadManifestRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9}`), 0644))
	_, err := ReadManifest(path)
	require.Error(t, err)
}
