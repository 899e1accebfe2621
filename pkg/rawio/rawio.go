// Package rawio loads and saves the flat palette and index arrays that feed
// the encoder and come out of the decoder.
//
// A file's form is chosen by extension:
//
//	.zst      zstd-compressed flat records
//	.parquet  one row per record
//	anything else: flat little-endian records (48 bytes per splat, 8 per index)
package rawio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/eunmann/splat4d/pkg/fileutil"
	"github.com/eunmann/splat4d/pkg/format"
	"github.com/klauspost/compress/zstd"
)

// MaxDecompressed caps the decompressed size of a .zst array file.
var MaxDecompressed int64 = 16 << 30

// ErrTooLarge is returned when a compressed file expands past MaxDecompressed.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// Kind is the on-disk form of a flat array file.
type Kind int

const (
	KindRaw Kind = iota
	KindZstd
	KindParquet
)

func (k Kind) String() string {
	switch k {
	case KindZstd:
		return "zstd"
	case KindParquet:
		return "parquet"
	default:
		return "raw"
	}
}

// KindOf picks the form from the file extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return KindZstd
	case ".parquet":
		return KindParquet
	default:
		return KindRaw
	}
}

// LoadPalette reads a palette file. The file must hold at least one splat
// and no partial record.
func LoadPalette(path string) ([]format.Splat, error) {
	var (
		palette []format.Splat
		err     error
	)
	switch KindOf(path) {
	case KindParquet:
		palette, err = readPaletteParquet(path)
	case KindZstd:
		palette, err = loadZstd(path, format.SplatSize, func(r io.Reader, n uint64) ([]format.Splat, error) {
			return readPaletteRecords(r, n)
		})
	default:
		var n uint64
		if n, err = fileutil.RecordCount(path, format.SplatSize); err != nil {
			return nil, fmt.Errorf("load palette: %w", err)
		}
		palette, err = readFile(path, func(r io.Reader) ([]format.Splat, error) {
			return readPaletteRecords(r, n)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load palette %s: %w", path, err)
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("load palette %s: empty", path)
	}
	return palette, nil
}

// LoadIndex reads an index file.
func LoadIndex(path string) ([]uint64, error) {
	var (
		index []uint64
		err   error
	)
	switch KindOf(path) {
	case KindParquet:
		index, err = readIndexParquet(path)
	case KindZstd:
		index, err = loadZstd(path, format.IndexEntrySize, format.ReadIndex)
	default:
		var n uint64
		if n, err = fileutil.RecordCount(path, format.IndexEntrySize); err != nil {
			return nil, fmt.Errorf("load index: %w", err)
		}
		index, err = readFile(path, func(r io.Reader) ([]uint64, error) {
			return format.ReadIndex(r, n)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("load index %s: empty", path)
	}
	return index, nil
}

// SavePalette writes palette atomically in the form named by path.
func SavePalette(path string, palette []format.Splat) error {
	if len(palette) == 0 || uint64(len(palette)) > math.MaxUint32 {
		return fmt.Errorf("save palette: %d splats out of range", len(palette))
	}
	return save(path, func(w io.Writer) error {
		return format.WritePalette(w, palette, uint32(len(palette)))
	}, func(tmp string) error {
		return writePaletteParquet(tmp, palette)
	})
}

// SaveIndex writes index atomically in the form named by path.
func SaveIndex(path string, index []uint64) error {
	if len(index) == 0 {
		return fmt.Errorf("save index: no entries")
	}
	return save(path, func(w io.Writer) error {
		return format.WriteIndex(w, index, uint64(len(index)))
	}, func(tmp string) error {
		return writeIndexParquet(tmp, index)
	})
}

func readPaletteRecords(r io.Reader, n uint64) ([]format.Splat, error) {
	if n > math.MaxUint32 {
		return nil, fmt.Errorf("%d splats exceeds palette limit", n)
	}
	return format.ReadPalette(r, uint32(n))
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(bufio.NewReader(f))
}

// loadZstd decompresses the whole file, up to MaxDecompressed bytes, then
// decodes its records.
func loadZstd[T any](path string, recordSize int, read func(io.Reader, uint64) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	limit := MaxDecompressed
	data, err := io.ReadAll(io.LimitReader(dec, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("decompress: %w (%d bytes)", ErrTooLarge, limit)
	}
	if len(data) == 0 || len(data)%recordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", fileutil.ErrMisaligned, len(data), recordSize)
	}
	return read(bytes.NewReader(data), uint64(len(data)/recordSize))
}

func save(path string, writeFlat func(io.Writer) error, writeParquet func(tmp string) error) error {
	kind := KindOf(path)
	err := fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmp string) error {
		if kind == KindParquet {
			return writeParquet(tmp)
		}

		f, err := os.Create(tmp)
		if err != nil {
			return err
		}

		var (
			w   io.Writer = f
			enc *zstd.Encoder
		)
		if kind == KindZstd {
			if enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression)); err != nil {
				f.Close()
				return fmt.Errorf("create zstd encoder: %w", err)
			}
			w = enc
		}
		bw := bufio.NewWriter(w)

		if err := writeFlat(bw); err != nil {
			f.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		if enc != nil {
			if err := enc.Close(); err != nil {
				f.Close()
				return fmt.Errorf("close zstd encoder: %w", err)
			}
		}
		return f.Close()
	})
	if err != nil {
		return fmt.Errorf("save %s (%s): %w", path, kind, err)
	}
	return nil
}
