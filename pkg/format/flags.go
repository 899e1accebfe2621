package format

import "fmt"

// Flags is the packed 32-bit header configuration word.
//
//	bit  0     endian (0 little, 1 big)
//	bit  1     sorted
//	bits 2-3   precision
//	bits 4-7   compression
//	bits 8-9   index width
//	bits 10-11 splat shape
//	bits 12-15 color space
//	bits 16-19 interpolation
//	bits 20-23 reserved (encryption)
//	bits 24-31 metadata, carried through unchanged
type Flags uint32

// Field layout.
const (
	endianShift        = 0
	sortedShift        = 1
	precisionShift     = 2
	compressionShift   = 4
	indexWidthShift    = 8
	splatShapeShift    = 10
	colorSpaceShift    = 12
	interpolationShift = 16
	reservedShift      = 20
	metadataShift      = 24

	mask1 = 0x1
	mask2 = 0x3
	mask4 = 0xF
	mask8 = 0xFF
)

// FlagEndianBig is the big-endian bit. Files with it set are rejected.
const FlagEndianBig Flags = mask1 << endianShift

// FlagPrecisionMask covers the precision field.
const FlagPrecisionMask Flags = mask2 << precisionShift

// SupportedFlagsMask is every bit this decoder interprets. Any other bit set
// makes a file unsupported.
const SupportedFlagsMask = FlagEndianBig | FlagPrecisionMask

// Endian is the byte order field.
type Endian uint8

const (
	EndianLittle Endian = 0
	EndianBig    Endian = 1
)

// Precision is the float width used by palette records.
type Precision uint8

const (
	PrecisionFloat16  Precision = 0
	PrecisionFloat32  Precision = 1
	PrecisionFloat64  Precision = 2
	PrecisionFloat128 Precision = 3
)

// Compression identifies a payload compression scheme. Only CompressionNone
// has an implementation; the others are reserved identifiers.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionRunLength
	CompressionDeflate
	CompressionRAR
	CompressionLZO
	CompressionZlib
	CompressionBzip2
	CompressionLZMA
	CompressionZPAQ
	CompressionXZ
	CompressionLZ4
	CompressionSnappy
	CompressionLZHAM
	CompressionBrotli
	CompressionLZFSE
	CompressionZstd
)

// IndexWidth is the advertised index record width. Records are always
// 8 bytes in this version, so the field must be zero.
type IndexWidth uint8

const (
	IndexWidth8  IndexWidth = 0
	IndexWidth16 IndexWidth = 1
	IndexWidth32 IndexWidth = 2
	IndexWidth64 IndexWidth = 3
)

// SplatShape describes how sigma values are interpreted.
type SplatShape uint8

const (
	ShapeIsotropic SplatShape = iota
	ShapeAxisAligned
	ShapeFullCovariance
	ShapeReserved
)

// ColorSpace identifies the color space of r, g, b.
type ColorSpace uint8

const (
	ColorSRGB ColorSpace = iota
	ColorLinearSRGB
	ColorOklab
	ColorDisplayP3
	ColorRec709
	ColorRec2020
	ColorDCIP3
	ColorACESAP0
	ColorProPhotoRGB
	ColorRec2100
	ColorCIELab
	ColorCIEXYZD65
	ColorACEScgAP1
	ColorRec601
	ColorCIEXYZD50
	ColorCIEXYZD65Alt
)

// Interpolation is the suggested reconstruction filter between cells.
type Interpolation uint8

const (
	InterpNone Interpolation = iota
	InterpNearest
	InterpAxisAligned
	InterpSmooth
	InterpLanczos
	InterpGaussian
	InterpCatmullRom
	InterpNURBS
	InterpRBF
	InterpOpticalFlow
	InterpNeural
	InterpAkima
	InterpInverseDistance
	InterpFourier
	InterpMovingLeastSquares
	InterpCubicHermite
)

// FlagFields is the unpacked form of Flags.
type FlagFields struct {
	Endian        Endian
	Sorted        bool
	Precision     Precision
	Compression   Compression
	IndexWidth    IndexWidth
	Shape         SplatShape
	ColorSpace    ColorSpace
	Interpolation Interpolation
	Reserved      uint8
	Metadata      uint8
}

// MakeFlags packs fields into a Flags word. Values wider than their field
// are truncated to the field width.
func MakeFlags(f FlagFields) Flags {
	var fl Flags
	fl = fl.SetEndian(f.Endian)
	fl = fl.SetSorted(f.Sorted)
	fl = fl.SetPrecision(f.Precision)
	fl = fl.SetCompression(f.Compression)
	fl = fl.SetIndexWidth(f.IndexWidth)
	fl = fl.SetSplatShape(f.Shape)
	fl = fl.SetColorSpace(f.ColorSpace)
	fl = fl.SetInterpolation(f.Interpolation)
	fl = fl.SetReserved(f.Reserved)
	fl = fl.SetMetadata(f.Metadata)
	return fl
}

// DefaultFlags returns little-endian, unsorted, Float32, uncompressed,
// isotropic, sRGB, no interpolation.
func DefaultFlags() Flags {
	return MakeFlags(FlagFields{Precision: PrecisionFloat32})
}

// Fields unpacks every field.
func (f Flags) Fields() FlagFields {
	return FlagFields{
		Endian:        f.Endian(),
		Sorted:        f.Sorted(),
		Precision:     f.Precision(),
		Compression:   f.Compression(),
		IndexWidth:    f.IndexWidth(),
		Shape:         f.SplatShape(),
		ColorSpace:    f.ColorSpace(),
		Interpolation: f.Interpolation(),
		Reserved:      f.Reserved(),
		Metadata:      f.Metadata(),
	}
}

func (f Flags) get(shift, mask uint32) uint32 {
	return (uint32(f) >> shift) & mask
}

func (f Flags) set(shift, mask, v uint32) Flags {
	cleared := uint32(f) &^ (mask << shift)
	return Flags(cleared | (v&mask)<<shift)
}

func (f Flags) Endian() Endian { return Endian(f.get(endianShift, mask1)) }

func (f Flags) SetEndian(e Endian) Flags { return f.set(endianShift, mask1, uint32(e)) }

func (f Flags) Sorted() bool { return f.get(sortedShift, mask1) == 1 }

func (f Flags) SetSorted(sorted bool) Flags {
	var v uint32
	if sorted {
		v = 1
	}
	return f.set(sortedShift, mask1, v)
}

func (f Flags) Precision() Precision { return Precision(f.get(precisionShift, mask2)) }

func (f Flags) SetPrecision(p Precision) Flags { return f.set(precisionShift, mask2, uint32(p)) }

func (f Flags) Compression() Compression { return Compression(f.get(compressionShift, mask4)) }

func (f Flags) SetCompression(c Compression) Flags {
	return f.set(compressionShift, mask4, uint32(c))
}

func (f Flags) IndexWidth() IndexWidth { return IndexWidth(f.get(indexWidthShift, mask2)) }

func (f Flags) SetIndexWidth(w IndexWidth) Flags { return f.set(indexWidthShift, mask2, uint32(w)) }

func (f Flags) SplatShape() SplatShape { return SplatShape(f.get(splatShapeShift, mask2)) }

func (f Flags) SetSplatShape(s SplatShape) Flags { return f.set(splatShapeShift, mask2, uint32(s)) }

func (f Flags) ColorSpace() ColorSpace { return ColorSpace(f.get(colorSpaceShift, mask4)) }

func (f Flags) SetColorSpace(c ColorSpace) Flags { return f.set(colorSpaceShift, mask4, uint32(c)) }

func (f Flags) Interpolation() Interpolation {
	return Interpolation(f.get(interpolationShift, mask4))
}

func (f Flags) SetInterpolation(i Interpolation) Flags {
	return f.set(interpolationShift, mask4, uint32(i))
}

// Reserved returns bits 20-23 (reserved for encryption).
func (f Flags) Reserved() uint8 { return uint8(f.get(reservedShift, mask4)) }

func (f Flags) SetReserved(v uint8) Flags { return f.set(reservedShift, mask4, uint32(v)) }

// Metadata returns the opaque top byte.
func (f Flags) Metadata() uint8 { return uint8(f.get(metadataShift, mask8)) }

func (f Flags) SetMetadata(v uint8) Flags { return f.set(metadataShift, mask8, uint32(v)) }

// SanitizeFlags forces little-endian and upgrades Float16 precision to
// Float32. It is applied when a header is created, never on decode.
func SanitizeFlags(f Flags) Flags {
	f = f.SetEndian(EndianLittle)
	if f.Precision() == PrecisionFloat16 {
		f = f.SetPrecision(PrecisionFloat32)
	}
	return f
}

// FlagsSupported is the strict pre-decode gate: no bits outside
// SupportedFlagsMask, little-endian, Float32 precision.
func FlagsSupported(f Flags) error {
	if extra := f &^ SupportedFlagsMask; extra != 0 {
		return fmt.Errorf("%w: unexpected bits 0x%08X in 0x%08X", ErrUnsupportedFlags, uint32(extra), uint32(f))
	}
	if f.Endian() == EndianBig {
		return fmt.Errorf("%w: big-endian files are not supported", ErrUnsupportedFlags)
	}
	if p := f.Precision(); p != PrecisionFloat32 {
		return fmt.Errorf("%w: precision %d, want %d (float32)", ErrUnsupportedFlags, p, PrecisionFloat32)
	}
	return nil
}

// Supported reports whether FlagsSupported accepts f.
func (f Flags) Supported() bool {
	return FlagsSupported(f) == nil
}
