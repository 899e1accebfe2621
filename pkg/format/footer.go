package format

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Footer trails the index section.
type Footer struct {
	IndexOffset uint64
	Checksum    uint32
	End         [4]byte
}

// MakeFooter derives the index offset from h. The checksum starts at zero
// and is filled in once the payload has been streamed.
func MakeFooter(h Header) Footer {
	return Footer{
		IndexOffset: IndexOffset(h),
		End:         EndMarker,
	}
}

// IndexOffset is the byte offset of the index section: the header plus
// PaletteSize splats. It cannot overflow.
func IndexOffset(h Header) uint64 {
	return HeaderSize + uint64(h.PaletteSize)*SplatSize
}

// IndexOffsetFromFileSize derives the index offset by walking back from the
// end of a file of the given size: size - footer - index bytes.
func IndexOffsetFromFileSize(size uint64, h Header) (uint64, error) {
	total, err := TotalIndicesChecked(h)
	if err != nil {
		return 0, err
	}
	indexBytes, err := IndexBytes(total)
	if err != nil {
		return 0, err
	}
	if size < FooterSize+indexBytes {
		return 0, fmt.Errorf("%w: file of %d bytes cannot hold %d index bytes", ErrFileSize, size, indexBytes)
	}
	return size - FooterSize - indexBytes, nil
}

// FileSize returns the exact container size implied by h.
func FileSize(h Header) (uint64, error) {
	total, err := TotalIndicesChecked(h)
	if err != nil {
		return 0, err
	}
	indexBytes, err := IndexBytes(total)
	if err != nil {
		return 0, err
	}
	size := IndexOffset(h) + indexBytes
	if size < indexBytes || size+FooterSize < size {
		return 0, fmt.Errorf("%w: file size", ErrSizeOverflow)
	}
	return size + FooterSize, nil
}

// IndexOffsetValid reports whether the stored offset matches h.
func (f Footer) IndexOffsetValid(h Header) bool {
	return f.IndexOffset == IndexOffset(h)
}

// EncodeFooter writes a footer to a byte slice.
func EncodeFooter(f Footer) []byte {
	buf := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(buf[0:8], f.IndexOffset)
	binary.LittleEndian.PutUint32(buf[8:12], f.Checksum)
	copy(buf[12:16], f.End[:])
	return buf
}

// DecodeFooter reads a footer from a byte slice.
func DecodeFooter(buf []byte) (Footer, error) {
	if len(buf) < FooterSize {
		return Footer{}, fmt.Errorf("%w: footer needs %d bytes, have %d", ErrShortTransfer, FooterSize, len(buf))
	}
	var f Footer
	f.IndexOffset = binary.LittleEndian.Uint64(buf[0:8])
	f.Checksum = binary.LittleEndian.Uint32(buf[8:12])
	copy(f.End[:], buf[12:16])
	return f, nil
}

// WriteFooter writes exactly FooterSize bytes.
func WriteFooter(w io.Writer, f Footer) error {
	return writeFull(w, EncodeFooter(f), "footer")
}

// ReadFooter reads exactly FooterSize bytes.
func ReadFooter(r io.Reader) (Footer, error) {
	buf := make([]byte, FooterSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Footer{}, shortTransfer("read footer", err)
	}
	return DecodeFooter(buf)
}
