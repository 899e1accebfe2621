package format

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/eunmann/splat4d/pkg/fileutil"
	"github.com/eunmann/splat4d/pkg/membudget"
)

// Options tunes encode and decode. The zero value is usable.
type Options struct {
	// ChunkSize bounds streaming buffers. 0 means DefaultChunkSize.
	ChunkSize int

	// Budget, when set, is charged for palette and index bytes before a
	// decode allocates them.
	Budget *membudget.Budget
}

// Encode writes v to w: header, palette and index streamed through a running
// CRC32, then the footer. If w is an io.Seeker it is positioned at its end
// before the footer is appended. v.Footer is updated with the index offset
// and the checksum actually written.
//
// Concurrent writers to the same stream must be serialized by the caller.
func Encode(w io.Writer, v *Video, opts Options) error {
	if v == nil {
		return ErrNilVideo
	}
	chunk := normalizeChunk(opts.ChunkSize)
	bw := bufio.NewWriterSize(w, chunk)
	crc := crc32.NewIEEE()

	err := StreamPayload(v, chunk, func(p []byte) error {
		if err := writeFull(bw, p, "payload"); err != nil {
			return err
		}
		crc.Write(p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return shortTransfer("flush payload", err)
	}

	footer := MakeFooter(v.Header)
	footer.Checksum = crc.Sum32()

	if s, ok := w.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("seek to end: %w", err)
		}
	}
	if err := WriteFooter(w, footer); err != nil {
		return err
	}
	v.Footer = footer
	return nil
}

// EncodeFile writes v to path atomically: the container is written to a
// temporary file next to path, synced, then renamed over path.
func EncodeFile(path string, v *Video, opts Options) error {
	return fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmpPath, err)
		}
		if err := Encode(f, v, opts); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", tmpPath, err)
		}
		return nil
	})
}
