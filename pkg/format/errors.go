package format

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is without matching on messages.
var (
	// ErrShortTransfer indicates a read or write moved fewer bytes than requested.
	ErrShortTransfer = errors.New("short transfer")
	// ErrSizeOverflow indicates a dimension product or byte size that cannot be represented.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrStructure indicates sections that disagree with each other.
	ErrStructure = errors.New("structural mismatch")
	// ErrIntegrity indicates the stored checksum does not match the payload.
	ErrIntegrity = errors.New("integrity failure")
	// ErrUnsupported indicates a well-formed file this decoder does not handle.
	ErrUnsupported = errors.New("unsupported format")
)

var (
	// ErrInvalidHeader indicates an invalid or truncated file header.
	ErrInvalidHeader = fmt.Errorf("%w: invalid file header", ErrShortTransfer)
	// ErrMagicMismatch indicates the magic tag doesn't match.
	ErrMagicMismatch = fmt.Errorf("%w: magic mismatch", ErrUnsupported)
	// ErrVersionMismatch indicates an unsupported major version.
	ErrVersionMismatch = fmt.Errorf("%w: unsupported format version", ErrUnsupported)
	// ErrUnsupportedFlags indicates a flag combination outside the supported subset.
	ErrUnsupportedFlags = fmt.Errorf("%w: unsupported flags", ErrUnsupported)
	// ErrZeroDimension indicates a zero width, height, depth, frame count or palette size.
	ErrZeroDimension = fmt.Errorf("%w: zero dimension", ErrUnsupported)
	// ErrIndexOffset indicates the footer idxoffset disagrees with the palette size.
	ErrIndexOffset = fmt.Errorf("%w: index offset", ErrStructure)
	// ErrEndMarker indicates the footer end marker is wrong.
	ErrEndMarker = fmt.Errorf("%w: end marker", ErrStructure)
	// ErrFileSize indicates the file length disagrees with the header.
	ErrFileSize = fmt.Errorf("%w: file size", ErrStructure)
	// ErrChecksumMismatch indicates the recomputed CRC32 differs from the footer.
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrIntegrity)
	// ErrBoundsCheck indicates an out-of-bounds access attempt.
	ErrBoundsCheck = errors.New("index out of bounds")
	// ErrNilVideo indicates a missing video reference.
	ErrNilVideo = errors.New("video reference required")
)

// ValidationError reports which check failed and, when the check compares
// two values, what was expected and what was found.
type ValidationError struct {
	Check string
	Field string
	Want  any
	Got   any
	Err   error
}

func (e *ValidationError) Error() string {
	msg := e.Check
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Want != nil || e.Got != nil {
		msg += fmt.Sprintf(": got %s, want %s", formatValue(e.Got), formatValue(e.Want))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case uint32:
		return fmt.Sprintf("0x%08X", x)
	case [4]byte:
		return fmt.Sprintf("%q", x[:])
	default:
		return fmt.Sprint(x)
	}
}

func shortTransfer(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrShortTransfer, what, err)
}
