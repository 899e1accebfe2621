// Package format implements the .4spl container: a palette of splats
// referenced by a dense x,y,z,t index volume, framed by a fixed header and a
// checksummed footer.
//
// Layout (all integers little-endian):
//
//	header  32 bytes
//	palette PaletteSize * 48 bytes
//	index   Width*Height*Depth*Frames * 8 bytes, t-major then z, y, x
//	footer  16 bytes (idxoffset u64, crc32 u32, end marker)
package format

import (
	"encoding/binary"
	"io"
)

// Section sizes in bytes.
const (
	HeaderSize     = 32
	SplatSize      = 48
	IndexEntrySize = 8
	FooterSize     = 16
)

// VersionMajor is the only major version this package reads and writes.
const VersionMajor = 1

var (
	// Magic identifies .4spl files ("4SPL").
	Magic = [4]byte{0x34, 0x53, 0x50, 0x4C}
	// EndMarker terminates the footer ("LPS4").
	EndMarker = [4]byte{0x4C, 0x50, 0x53, 0x34}
	// Version is stamped into every header written by this package.
	Version = [4]byte{VersionMajor, 0, 0, 0}
)

// Header is the fixed 32-byte file header.
type Header struct {
	Magic       [4]byte
	Version     [4]byte
	Width       uint32
	Height      uint32
	Depth       uint32
	Frames      uint32
	PaletteSize uint32
	Flags       Flags
}

// MakeHeader stamps magic and version and sanitizes flags. Dimensions are
// stored verbatim; they are checked by Validate, not here.
func MakeHeader(width, height, depth, frames, paletteSize uint32, flags Flags) Header {
	return Header{
		Magic:       Magic,
		Version:     Version,
		Width:       width,
		Height:      height,
		Depth:       depth,
		Frames:      frames,
		PaletteSize: paletteSize,
		Flags:       SanitizeFlags(flags),
	}
}

// EncodeHeader writes a header to a byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	copy(buf[0:4], h.Magic[:])
	copy(buf[4:8], h.Version[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Width)
	binary.LittleEndian.PutUint32(buf[12:16], h.Height)
	binary.LittleEndian.PutUint32(buf[16:20], h.Depth)
	binary.LittleEndian.PutUint32(buf[20:24], h.Frames)
	binary.LittleEndian.PutUint32(buf[24:28], h.PaletteSize)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.Flags))
}

// DecodeHeader reads a header from a byte slice.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrInvalidHeader
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	copy(h.Version[:], buf[4:8])
	h.Width = binary.LittleEndian.Uint32(buf[8:12])
	h.Height = binary.LittleEndian.Uint32(buf[12:16])
	h.Depth = binary.LittleEndian.Uint32(buf[16:20])
	h.Frames = binary.LittleEndian.Uint32(buf[20:24])
	h.PaletteSize = binary.LittleEndian.Uint32(buf[24:28])
	h.Flags = Flags(binary.LittleEndian.Uint32(buf[28:32]))
	return h, nil
}

// WriteHeader writes exactly HeaderSize bytes.
func WriteHeader(w io.Writer, h Header) error {
	return writeFull(w, EncodeHeader(h), "header")
}

// ReadHeader reads exactly HeaderSize bytes.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, shortTransfer("read header", err)
	}
	return DecodeHeader(buf)
}

// writeFull writes buf and reports any short write as ErrShortTransfer.
func writeFull(w io.Writer, buf []byte, what string) error {
	n, err := w.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return shortTransfer("write "+what, err)
	}
	return nil
}
