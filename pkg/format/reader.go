package format

import (
	"bytes"
	"fmt"
	"io"
)

// Decode reads a container from r.
//
// Header checks and every size computation run before anything is
// allocated; the palette and index reservation is taken from opts.Budget
// when one is set. After the footer is read the stored index offset is
// checked against the palette size, then Validate runs. On any failure the
// partially decoded video is released and nil is returned.
func Decode(r io.Reader, opts Options) (*Video, error) {
	chunk := normalizeChunk(opts.ChunkSize)

	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	paletteBytes, err := PaletteBytes(h.PaletteSize)
	if err != nil {
		return nil, err
	}
	total, err := TotalIndicesChecked(h)
	if err != nil {
		return nil, err
	}
	indexBytes, err := IndexBytes(total)
	if err != nil {
		return nil, err
	}

	v := &Video{Header: h}
	if opts.Budget != nil {
		need := paletteBytes + indexBytes
		if err := opts.Budget.Reserve(need); err != nil {
			return nil, fmt.Errorf("%w: decode: %w", ErrSizeOverflow, err)
		}
		v.budget, v.reserved = opts.Budget, need
	}

	done := false
	defer func() {
		if !done {
			v.Release()
		}
	}()

	if v.Palette, err = readPalette(r, h.PaletteSize, chunk); err != nil {
		return nil, err
	}
	if v.Index, err = readIndex(r, total, chunk); err != nil {
		return nil, err
	}
	if v.Footer, err = ReadFooter(r); err != nil {
		return nil, err
	}

	if !v.Footer.IndexOffsetValid(h) {
		return nil, &ValidationError{
			Check: "footer",
			Field: "idxoffset",
			Want:  IndexOffset(h),
			Got:   v.Footer.IndexOffset,
			Err:   ErrIndexOffset,
		}
	}
	if err := validate(v, chunk); err != nil {
		return nil, err
	}

	done = true
	return v, nil
}

// DecodeBytes decodes a container held entirely in memory. Trailing bytes
// after the footer are rejected.
func DecodeBytes(data []byte, opts Options) (*Video, error) {
	if err := checkContainerSize(data); err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data), opts)
}

// checkContainerSize compares len(data) to the size the header implies, so a
// truncated or padded file fails before decode allocates anything.
func checkContainerSize(data []byte) error {
	h, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	if err := validateHeader(h); err != nil {
		return err
	}
	want, err := FileSize(h)
	if err != nil {
		return err
	}
	got := uint64(len(data))
	switch {
	case got < want:
		return fmt.Errorf("%w: container is %d bytes, header implies %d", ErrShortTransfer, got, want)
	case got > want:
		return &ValidationError{Check: "file", Field: "size", Want: want, Got: got, Err: ErrFileSize}
	}
	return nil
}
