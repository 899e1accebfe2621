package format

// Validate runs the ordered checks on an in-memory video and returns the
// first failure:
//
//  1. video present
//  2. magic
//  3. major version
//  4. width, height, depth, frames, palette size all positive
//  5. flags supported
//  6. footer end marker
//  7. recomputed checksum equals the footer checksum
//
// Every failure is a *ValidationError.
func Validate(v *Video) error {
	return validate(v, DefaultChunkSize)
}

func validate(v *Video, chunk int) error {
	if v == nil {
		return &ValidationError{Check: "video", Err: ErrNilVideo}
	}
	if err := validateHeader(v.Header); err != nil {
		return err
	}
	if v.Footer.End != EndMarker {
		return &ValidationError{Check: "footer", Field: "end marker", Want: EndMarker, Got: v.Footer.End, Err: ErrEndMarker}
	}
	sum, err := Checksum(v, chunk)
	if err != nil {
		return &ValidationError{Check: "checksum", Err: err}
	}
	if sum != v.Footer.Checksum {
		return &ValidationError{Check: "checksum", Field: "crc32", Want: sum, Got: v.Footer.Checksum, Err: ErrChecksumMismatch}
	}
	return nil
}

// validateHeader covers checks 2 through 5. Decode runs it before any
// allocation.
func validateHeader(h Header) error {
	if h.Magic != Magic {
		return &ValidationError{Check: "header", Field: "magic", Want: Magic, Got: h.Magic, Err: ErrMagicMismatch}
	}
	if h.Version[0] != VersionMajor {
		return &ValidationError{Check: "header", Field: "major version", Want: uint8(VersionMajor), Got: h.Version[0], Err: ErrVersionMismatch}
	}
	dims := []struct {
		name string
		v    uint32
	}{
		{"width", h.Width},
		{"height", h.Height},
		{"depth", h.Depth},
		{"frames", h.Frames},
		{"palette size", h.PaletteSize},
	}
	for _, d := range dims {
		if d.v == 0 {
			return &ValidationError{Check: "header", Field: d.name, Err: ErrZeroDimension}
		}
	}
	if err := FlagsSupported(h.Flags); err != nil {
		return &ValidationError{Check: "header", Field: "flags", Err: err}
	}
	return nil
}
