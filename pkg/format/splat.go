package format

import (
	"encoding/binary"
	"math"
)

// Splat is one palette entry: a 4D Gaussian footprint (mean and spread per
// axis) plus an RGBA color.
type Splat struct {
	MuX, SigmaX float32
	MuY, SigmaY float32
	MuZ, SigmaZ float32
	MuT, SigmaT float32
	R, G, B     float32
	Alpha       float32
}

// SplatFields is the on-disk field order of a Splat.
type SplatFields [12]float32

// Fields returns the twelve floats in on-disk order.
func (s Splat) Fields() SplatFields {
	return SplatFields{
		s.MuX, s.SigmaX,
		s.MuY, s.SigmaY,
		s.MuZ, s.SigmaZ,
		s.MuT, s.SigmaT,
		s.R, s.G, s.B, s.Alpha,
	}
}

// SplatFromFields builds a Splat from floats in on-disk order.
func SplatFromFields(f SplatFields) Splat {
	return Splat{
		MuX: f[0], SigmaX: f[1],
		MuY: f[2], SigmaY: f[3],
		MuZ: f[4], SigmaZ: f[5],
		MuT: f[6], SigmaT: f[7],
		R: f[8], G: f[9], B: f[10], Alpha: f[11],
	}
}

// Bits returns the raw IEEE-754 bits of every field. Two splats are the same
// palette entry only if their bits match exactly.
func (s Splat) Bits() [12]uint32 {
	var out [12]uint32
	for i, f := range s.Fields() {
		out[i] = math.Float32bits(f)
	}
	return out
}

// PutSplat encodes s into the first SplatSize bytes of buf.
func PutSplat(buf []byte, s Splat) {
	for i, bits := range s.Bits() {
		binary.LittleEndian.PutUint32(buf[i*4:], bits)
	}
}

// DecodeSplat decodes the first SplatSize bytes of buf.
func DecodeSplat(buf []byte) Splat {
	_ = buf[SplatSize-1]
	var f SplatFields
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return SplatFromFields(f)
}
