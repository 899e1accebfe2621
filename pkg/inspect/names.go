// Package inspect renders containers for people: flag names, text summaries,
// palette usage and reconstructed slices.
package inspect

import "github.com/eunmann/splat4d/pkg/format"

const unknown = "Unknown"

// EndianName names the endian field.
func EndianName(e format.Endian) string {
	switch e {
	case format.EndianLittle:
		return "Little-Endian"
	case format.EndianBig:
		return "Big-Endian"
	default:
		return unknown
	}
}

// SortedName names the sorted bit.
func SortedName(sorted bool) string {
	if sorted {
		return "Sorted"
	}
	return "Unsorted"
}

// PrecisionName names the precision field.
func PrecisionName(p format.Precision) string {
	switch p {
	case format.PrecisionFloat16:
		return "Float16"
	case format.PrecisionFloat32:
		return "Float32"
	case format.PrecisionFloat64:
		return "Float64"
	case format.PrecisionFloat128:
		return "Float128"
	default:
		return unknown
	}
}

// CompressionName names the compression field.
func CompressionName(c format.Compression) string {
	switch c {
	case format.CompressionNone:
		return "None"
	case format.CompressionRunLength:
		return "Run Length"
	case format.CompressionDeflate:
		return "DEFLATE"
	case format.CompressionRAR:
		return "RAR"
	case format.CompressionLZO:
		return "LZO"
	case format.CompressionZlib:
		return "zlib"
	case format.CompressionBzip2:
		return "bzip2"
	case format.CompressionLZMA:
		return "LZMA"
	case format.CompressionZPAQ:
		return "ZPAQ"
	case format.CompressionXZ:
		return "XZ"
	case format.CompressionLZ4:
		return "LZ4"
	case format.CompressionSnappy:
		return "Snappy"
	case format.CompressionLZHAM:
		return "LZHAM"
	case format.CompressionBrotli:
		return "Brotli"
	case format.CompressionLZFSE:
		return "LZFSE"
	case format.CompressionZstd:
		return "Zstd"
	default:
		return unknown
	}
}

// IndexWidthName names the index width field.
func IndexWidthName(w format.IndexWidth) string {
	switch w {
	case format.IndexWidth8:
		return "1-byte"
	case format.IndexWidth16:
		return "2-byte"
	case format.IndexWidth32:
		return "4-byte"
	case format.IndexWidth64:
		return "8-byte"
	default:
		return unknown
	}
}

// ShapeName names the splat shape field.
func ShapeName(s format.SplatShape) string {
	switch s {
	case format.ShapeIsotropic:
		return "Isotropic"
	case format.ShapeAxisAligned:
		return "Axis-Aligned"
	case format.ShapeFullCovariance:
		return "Full Cov"
	case format.ShapeReserved:
		return "Reserved"
	default:
		return unknown
	}
}

// ColorSpaceName names the color space field.
func ColorSpaceName(c format.ColorSpace) string {
	switch c {
	case format.ColorSRGB:
		return "sRGB"
	case format.ColorLinearSRGB:
		return "Linear sRGB"
	case format.ColorOklab:
		return "OKLab"
	case format.ColorDisplayP3:
		return "Display P3"
	case format.ColorRec709:
		return "Rec.709"
	case format.ColorRec2020:
		return "Rec.2020"
	case format.ColorDCIP3:
		return "DCI-P3"
	case format.ColorACESAP0:
		return "ACES AP0"
	case format.ColorProPhotoRGB:
		return "ProPhoto"
	case format.ColorRec2100:
		return "Rec.2100"
	case format.ColorCIELab:
		return "CIE Lab"
	case format.ColorCIEXYZD65, format.ColorCIEXYZD65Alt:
		return "CIE XYZ D65"
	case format.ColorACEScgAP1:
		return "ACEScg AP1"
	case format.ColorRec601:
		return "Rec.601"
	case format.ColorCIEXYZD50:
		return "CIE XYZ D50"
	default:
		return unknown
	}
}

// InterpolationName names the interpolation field.
func InterpolationName(i format.Interpolation) string {
	switch i {
	case format.InterpNone:
		return "None"
	case format.InterpNearest:
		return "Nearest"
	case format.InterpAxisAligned:
		return "Axis-Aligned"
	case format.InterpSmooth:
		return "Smooth"
	case format.InterpLanczos:
		return "Lanczos"
	case format.InterpGaussian:
		return "Gaussian"
	case format.InterpCatmullRom:
		return "Catmull-Rom"
	case format.InterpNURBS:
		return "NURBS"
	case format.InterpRBF:
		return "RBF"
	case format.InterpOpticalFlow:
		return "Optical Flow"
	case format.InterpNeural:
		return "Neural"
	case format.InterpAkima:
		return "Akima"
	case format.InterpInverseDistance:
		return "Inverse Distance"
	case format.InterpFourier:
		return "Fourier"
	case format.InterpMovingLeastSquares:
		return "Moving LS"
	case format.InterpCubicHermite:
		return "Cubic Hermite"
	default:
		return unknown
	}
}
