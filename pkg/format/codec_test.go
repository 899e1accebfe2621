package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunmann/splat4d/pkg/membudget"
)

func scenarioVideo(t *testing.T) *Video {
	t.Helper()
	h := MakeHeader(2, 2, 1, 1, 2, 0)
	palette := []Splat{
		{MuX: 0.5, SigmaX: 1, MuY: 0.5, SigmaY: 1, MuZ: 0, SigmaZ: 1, MuT: 0, SigmaT: 1, R: 1, G: 0, B: 0, Alpha: 1},
		{MuX: 1.5, SigmaX: 0.25, MuY: 1.5, SigmaY: 0.25, MuZ: 0, SigmaZ: 2, MuT: 0, SigmaT: 2, R: 0, G: 0.5, B: 1, Alpha: 0.75},
	}
	v, err := NewVideo(h, palette, []uint64{0, 1, 0, 1})
	require.NoError(t, err)
	return v
}

func syntheticVideo(t *testing.T, w, h, d, f, p uint32) *Video {
	t.Helper()
	palette := make([]Splat, p)
	for i := range palette {
		x := float32(i)
		palette[i] = Splat{
			MuX: x, SigmaX: x / 2, MuY: -x, SigmaY: 1, MuZ: x * 3, SigmaZ: 0.5,
			MuT: x / 4, SigmaT: 2, R: x / float32(p), G: 1 - x/float32(p), B: 0.25, Alpha: 1,
		}
	}
	n := uint64(w) * uint64(h) * uint64(d) * uint64(f)
	index := make([]uint64, n)
	for i := range index {
		index[i] = uint64(i*7) % uint64(p)
	}
	v, err := NewVideo(MakeHeader(w, h, d, f, p, DefaultFlags()), palette, index)
	require.NoError(t, err)
	return v
}

func encodeBytes(t *testing.T, v *Video, opts Options) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, v, opts))
	return buf.Bytes()
}

func TestCRC32ReferenceVector(t *testing.T) {
	require.Equal(t, uint32(0xCBF43926), CRC32([]byte("123456789")))
}

func TestScenarioEncode(t *testing.T) {
	v := scenarioVideo(t)
	data := encodeBytes(t, v, Options{})

	require.Len(t, data, 176)
	size, err := FileSize(v.Header)
	require.NoError(t, err)
	require.Equal(t, uint64(176), size)

	require.Equal(t, []byte("4SPL"), data[0:4])
	require.Equal(t, []byte{1, 0, 0, 0}, data[4:8])
	require.Equal(t, uint32(0x4), binary.LittleEndian.Uint32(data[28:32]))

	// First palette record starts with mu_x = 0.5.
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x3F}, data[32:36])

	for i, want := range []uint64{0, 1, 0, 1} {
		off := 128 + i*8
		require.Equal(t, want, binary.LittleEndian.Uint64(data[off:off+8]))
	}

	require.Equal(t, uint64(128), binary.LittleEndian.Uint64(data[160:168]))
	require.Equal(t, CRC32(data[:160]), binary.LittleEndian.Uint32(data[168:172]))
	require.Equal(t, []byte("LPS4"), data[172:176])

	decoded, err := Decode(bytes.NewReader(data), Options{})
	require.NoError(t, err)
	require.NoError(t, Validate(decoded))
	require.Equal(t, v.Header, decoded.Header)
	require.Equal(t, v.Palette, decoded.Palette)
	require.Equal(t, v.Index, decoded.Index)
	require.Equal(t, v.Footer, decoded.Footer)
}

func TestRoundTrip(t *testing.T) {
	shapes := []struct {
		name          string
		w, h, d, f, p uint32
	}{
		{"single cell", 1, 1, 1, 1, 1},
		{"volume", 4, 3, 2, 5, 7},
		{"larger than chunk", 64, 64, 2, 2, 300},
	}
	for _, s := range shapes {
		t.Run(s.name, func(t *testing.T) {
			v := syntheticVideo(t, s.w, s.h, s.d, s.f, s.p)
			data := encodeBytes(t, v, Options{})

			decoded, err := Decode(bytes.NewReader(data), Options{})
			require.NoError(t, err)
			require.Equal(t, v.Header, decoded.Header)
			require.Equal(t, v.Palette, decoded.Palette)
			require.Equal(t, v.Index, decoded.Index)
			require.Equal(t, v.Footer, decoded.Footer)

			// Re-encoding the decoded video reproduces the file.
			require.Equal(t, data, encodeBytes(t, decoded, Options{}))
		})
	}
}

func TestChecksumChunkInvariance(t *testing.T) {
	v := syntheticVideo(t, 5, 3, 2, 3, 9)
	want, err := Checksum(v, 0)
	require.NoError(t, err)
	reference := encodeBytes(t, v, Options{})

	for _, chunk := range []int{0, 1, 7, 48, 4096, 1 << 20} {
		got, err := Checksum(v, chunk)
		require.NoError(t, err)
		require.Equal(t, want, got, "chunk %d", chunk)
		require.Equal(t, reference, encodeBytes(t, v, Options{ChunkSize: chunk}), "chunk %d", chunk)
	}
}

func TestStreamPayloadChunkBounds(t *testing.T) {
	v := syntheticVideo(t, 3, 3, 1, 1, 4)
	var total int
	err := StreamPayload(v, 10, func(p []byte) error {
		require.LessOrEqual(t, len(p), 10)
		require.NotEmpty(t, p)
		total += len(p)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, HeaderSize+4*SplatSize+9*IndexEntrySize, total)
}

func TestStreamPayloadStopsOnError(t *testing.T) {
	v := syntheticVideo(t, 3, 3, 1, 1, 4)
	boom := errors.New("boom")
	calls := 0
	err := StreamPayload(v, 8, func([]byte) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestChecksumTotality(t *testing.T) {
	v := syntheticVideo(t, 4, 4, 2, 3, 5)
	fromMemory, err := Checksum(v, 0)
	require.NoError(t, err)

	var streamed bytes.Buffer
	require.NoError(t, StreamPayload(v, 0, func(p []byte) error {
		streamed.Write(p)
		return nil
	}))

	data := encodeBytes(t, v, Options{})
	footer, err := DecodeFooter(data[len(data)-FooterSize:])
	require.NoError(t, err)

	require.Equal(t, fromMemory, CRC32(streamed.Bytes()))
	require.Equal(t, fromMemory, footer.Checksum)
	require.Equal(t, fromMemory, v.Footer.Checksum)
	require.Equal(t, streamed.Bytes(), data[:len(data)-FooterSize])
}

func TestIndexOffsetPaths(t *testing.T) {
	for _, p := range []uint32{1, 2, 17, 1000} {
		v := syntheticVideo(t, 3, 2, 2, 1, p)
		data := encodeBytes(t, v, Options{})
		want := uint64(HeaderSize) + uint64(p)*SplatSize

		require.Equal(t, want, IndexOffset(v.Header))
		fromSize, err := IndexOffsetFromFileSize(uint64(len(data)), v.Header)
		require.NoError(t, err)
		require.Equal(t, want, fromSize)
		require.Equal(t, want, v.Footer.IndexOffset)
		require.True(t, v.Footer.IndexOffsetValid(v.Header))
	}

	_, err := IndexOffsetFromFileSize(10, MakeHeader(2, 2, 1, 1, 1, 0))
	require.ErrorIs(t, err, ErrStructure)
}

func TestIndexBitFlipFailsIntegrity(t *testing.T) {
	v := scenarioVideo(t)
	data := encodeBytes(t, v, Options{})

	for i := range v.Index {
		for bit := 0; bit < 64; bit++ {
			decoded, err := Decode(bytes.NewReader(data), Options{})
			require.NoError(t, err)
			decoded.Index[i] ^= 1 << bit

			err = Validate(decoded)
			require.ErrorIs(t, err, ErrChecksumMismatch, "index %d bit %d", i, bit)
			require.ErrorIs(t, err, ErrIntegrity)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "checksum", verr.Check)
			require.Equal(t, decoded.Footer.Checksum, verr.Got)
		}
	}
}

func TestDecodeDetectsFileCorruption(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	corrupt := bytes.Clone(data)
	corrupt[140] ^= 0x10

	_, err := Decode(bytes.NewReader(corrupt), Options{})
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestValidateZeroDimensions(t *testing.T) {
	fields := []struct {
		name string
		zero func(h *Header)
	}{
		{"width", func(h *Header) { h.Width = 0 }},
		{"height", func(h *Header) { h.Height = 0 }},
		{"depth", func(h *Header) { h.Depth = 0 }},
		{"frames", func(h *Header) { h.Frames = 0 }},
		{"palette size", func(h *Header) { h.PaletteSize = 0 }},
	}
	for _, f := range fields {
		t.Run(f.name, func(t *testing.T) {
			v := scenarioVideo(t)
			f.zero(&v.Header)

			err := Validate(v)
			require.ErrorIs(t, err, ErrZeroDimension)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, f.name, verr.Field)
		})
	}
}

func TestUnsupportedFlagsWithConsistentChecksum(t *testing.T) {
	cases := []struct {
		name  string
		flags Flags
	}{
		{"big endian", DefaultFlags().SetEndian(EndianBig)},
		{"float64", DefaultFlags().SetPrecision(PrecisionFloat64)},
		{"index width", DefaultFlags().SetIndexWidth(IndexWidth16)},
		{"reserved", DefaultFlags().SetReserved(0xF)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := scenarioVideo(t)
			v.Header.Flags = c.flags
			sum, err := Checksum(v, 0)
			require.NoError(t, err)
			v.Footer.Checksum = sum

			require.ErrorIs(t, Validate(v), ErrUnsupportedFlags)

			// Encode does not sanitize, so the bad flags reach the file.
			data := encodeBytes(t, v, Options{})
			_, err = Decode(bytes.NewReader(data), Options{})
			require.ErrorIs(t, err, ErrUnsupportedFlags)
			require.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestValidateOrder(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		require.ErrorIs(t, Validate(nil), ErrNilVideo)
	})

	t.Run("magic before version", func(t *testing.T) {
		v := scenarioVideo(t)
		v.Header.Magic = [4]byte{'X', 'S', 'P', 'L'}
		v.Header.Version[0] = 2
		require.ErrorIs(t, Validate(v), ErrMagicMismatch)
	})

	t.Run("version", func(t *testing.T) {
		v := scenarioVideo(t)
		v.Header.Version[0] = 2
		require.ErrorIs(t, Validate(v), ErrVersionMismatch)
	})

	t.Run("minor version unconstrained", func(t *testing.T) {
		v := scenarioVideo(t)
		v.Header.Version = [4]byte{1, 9, 9, 9}
		sum, err := Checksum(v, 0)
		require.NoError(t, err)
		v.Footer.Checksum = sum
		require.NoError(t, Validate(v))
	})

	t.Run("end marker before checksum", func(t *testing.T) {
		v := scenarioVideo(t)
		v.Footer.End = [4]byte{}
		v.Footer.Checksum++
		require.ErrorIs(t, Validate(v), ErrEndMarker)
	})

	t.Run("checksum reports both values", func(t *testing.T) {
		v := scenarioVideo(t)
		want := v.Footer.Checksum
		v.Footer.Checksum = 0x12345678
		err := Validate(v)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, want, verr.Want)
		require.Equal(t, uint32(0x12345678), verr.Got)
		require.Contains(t, err.Error(), "0x12345678")
	})
}

func TestDecodeTruncated(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	cuts := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"inside header", 20},
		{"inside palette", HeaderSize + 10},
		{"inside index", 128 + 12},
		{"before footer", 160},
		{"inside footer", 170},
	}
	for _, c := range cuts {
		t.Run(c.name, func(t *testing.T) {
			budget := membudget.New(membudget.Config{TotalBytes: 1 << 20})

			v, err := Decode(bytes.NewReader(data[:c.n]), Options{Budget: budget})
			require.Nil(t, v)
			require.ErrorIs(t, err, ErrShortTransfer)
			require.Zero(t, budget.InUse())

			_, err = DecodeBytes(data[:c.n], Options{Budget: budget})
			require.ErrorIs(t, err, ErrShortTransfer)
			require.Zero(t, budget.InUse())
		})
	}
}

func TestDecodeOverstatedHeader(t *testing.T) {
	scenario := encodeBytes(t, scenarioVideo(t), Options{})
	oneSplat := make([]byte, SplatSize)
	PutSplat(oneSplat, scenarioVideo(t).Palette[0])

	cases := []struct {
		name    string
		h       Header
		payload []byte
	}{
		{"huge grid", MakeHeader(1<<14, 1<<14, 1<<14, 1<<14, 1, 0), oneSplat},
		{"max palette", MakeHeader(1, 1, 1, 1, 0xFFFFFFFF, 0), nil},
		{"extra frame", MakeHeader(2, 2, 1, 2, 2, 0), scenario[HeaderSize:]},
	}
	for _, c := range cases {
		data := append(EncodeHeader(c.h), c.payload...)

		t.Run(c.name+"/no budget", func(t *testing.T) {
			v, err := Decode(bytes.NewReader(data), Options{})
			require.Nil(t, v)
			require.ErrorIs(t, err, ErrShortTransfer)
		})

		t.Run(c.name+"/large budget", func(t *testing.T) {
			budget := membudget.New(membudget.Config{TotalBytes: 1 << 62})
			v, err := Decode(bytes.NewReader(data), Options{Budget: budget})
			require.Nil(t, v)
			require.ErrorIs(t, err, ErrShortTransfer)
			require.Zero(t, budget.InUse())
		})

		t.Run(c.name+"/bytes", func(t *testing.T) {
			_, err := DecodeBytes(data, Options{})
			require.ErrorIs(t, err, ErrShortTransfer)
		})
	}
}

func TestReadSectionsShortStream(t *testing.T) {
	_, err := ReadPalette(bytes.NewReader(make([]byte, SplatSize)), 0xFFFFFFFF)
	require.ErrorIs(t, err, ErrShortTransfer)

	_, err = ReadIndex(bytes.NewReader(make([]byte, 3*IndexEntrySize)), 1<<56)
	require.ErrorIs(t, err, ErrShortTransfer)
}

func TestReadIndexAcrossChunks(t *testing.T) {
	want := make([]uint64, initialRecords*3+5)
	for i := range want {
		want[i] = uint64(i)
	}
	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, want, uint64(len(want))))

	got, err := readIndex(&buf, uint64(len(want)), 4096)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeBudget(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})

	budget := membudget.New(membudget.Config{TotalBytes: 1 << 20})
	v, err := Decode(bytes.NewReader(data), Options{Budget: budget})
	require.NoError(t, err)
	require.Equal(t, uint64(2*SplatSize+4*IndexEntrySize), budget.InUse())

	v.Release()
	require.Zero(t, budget.InUse())
	require.Nil(t, v.Palette)
	require.Nil(t, v.Index)
	v.Release()
	require.Zero(t, budget.InUse())

	tiny := membudget.New(membudget.Config{TotalBytes: 64})
	_, err = Decode(bytes.NewReader(data), Options{Budget: tiny})
	require.ErrorIs(t, err, ErrSizeOverflow)
	require.ErrorIs(t, err, membudget.ErrExceeded)
	require.Zero(t, tiny.InUse())
}

func TestDecodeFailureReleasesBudget(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	corrupt := bytes.Clone(data)
	corrupt[100] ^= 0xFF

	budget := membudget.New(membudget.Config{TotalBytes: 1 << 20})
	_, err := Decode(bytes.NewReader(corrupt), Options{Budget: budget})
	require.ErrorIs(t, err, ErrIntegrity)
	require.Zero(t, budget.InUse())
}

func TestDecodeSizeOverflow(t *testing.T) {
	h := MakeHeader(0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 1, 0)
	_, err := Decode(bytes.NewReader(EncodeHeader(h)), Options{})
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = TotalIndicesChecked(h)
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = IndexBytes(1 << 61)
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = FileSize(h)
	require.ErrorIs(t, err, ErrSizeOverflow)
}

func TestTotalIndices(t *testing.T) {
	h := MakeHeader(2, 3, 4, 5, 1, 0)
	require.Equal(t, uint64(120), TotalIndices(h))
	total, err := TotalIndicesChecked(h)
	require.NoError(t, err)
	require.Equal(t, uint64(120), total)

	h.Depth = 0
	_, err = TotalIndicesChecked(h)
	require.ErrorIs(t, err, ErrZeroDimension)
}

func TestDecodeIndexOffsetMismatch(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	binary.LittleEndian.PutUint64(data[160:168], 999)

	budget := membudget.New(membudget.Config{TotalBytes: 1 << 20})
	_, err := Decode(bytes.NewReader(data), Options{Budget: budget})
	require.ErrorIs(t, err, ErrIndexOffset)
	require.ErrorIs(t, err, ErrStructure)
	require.Contains(t, err.Error(), "999")
	require.Zero(t, budget.InUse())
}

func TestDecodeBadEndMarker(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	copy(data[172:], "XXXX")

	_, err := Decode(bytes.NewReader(data), Options{})
	require.ErrorIs(t, err, ErrEndMarker)
}

func TestDecodeBytesTrailingData(t *testing.T) {
	data := encodeBytes(t, scenarioVideo(t), Options{})
	_, err := DecodeBytes(append(data, 0), Options{})
	require.ErrorIs(t, err, ErrFileSize)
}

func TestEncodeSeeksToEndBeforeFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.4spl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	v := scenarioVideo(t)
	require.NoError(t, Encode(f, v, Options{ChunkSize: 16}))

	info, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(176), info.Size())
}

func TestEncodeRejectsMismatchedSections(t *testing.T) {
	v := scenarioVideo(t)
	v.Index = v.Index[:3]
	err := Encode(&bytes.Buffer{}, v, Options{})
	require.ErrorIs(t, err, ErrStructure)

	_, err = NewVideo(MakeHeader(2, 2, 1, 1, 3, 0), v.Palette, []uint64{0, 1, 0, 1})
	require.ErrorIs(t, err, ErrStructure)
}

func TestEncodeShortWrite(t *testing.T) {
	err := Encode(&limitedWriter{n: 100}, scenarioVideo(t), Options{ChunkSize: 16})
	require.ErrorIs(t, err, ErrShortTransfer)
}

func TestEncodeFileDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "clip.4spl")
	v := syntheticVideo(t, 8, 8, 2, 3, 11)

	require.NoError(t, EncodeFile(path, v, Options{}))
	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	decoded, err := DecodeFile(path, Options{})
	require.NoError(t, err)
	require.Equal(t, v.Palette, decoded.Palette)
	require.Equal(t, v.Index, decoded.Index)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644))
	_, err = DecodeFile(path, Options{})
	require.ErrorIs(t, err, ErrShortTransfer)
}

func TestPaletteIndexSections(t *testing.T) {
	v := syntheticVideo(t, 2, 2, 2, 2, 5)

	var buf bytes.Buffer
	require.NoError(t, WritePalette(&buf, v.Palette, 5))
	require.Equal(t, 5*SplatSize, buf.Len())
	palette, err := ReadPalette(&buf, 5)
	require.NoError(t, err)
	require.Equal(t, v.Palette, palette)

	buf.Reset()
	require.NoError(t, WriteIndex(&buf, v.Index, 16))
	require.Equal(t, 16*IndexEntrySize, buf.Len())
	index, err := ReadIndex(&buf, 16)
	require.NoError(t, err)
	require.Equal(t, v.Index, index)

	require.Error(t, WritePalette(&buf, nil, 1))
	require.ErrorIs(t, WritePalette(&buf, v.Palette, 0), ErrZeroDimension)
	require.ErrorIs(t, WritePalette(&buf, v.Palette, 6), ErrStructure)
	require.Error(t, WriteIndex(&buf, nil, 1))

	_, err = ReadPalette(bytes.NewReader(make([]byte, SplatSize+1)), 2)
	require.ErrorIs(t, err, ErrShortTransfer)
	_, err = ReadIndex(bytes.NewReader(make([]byte, 15)), 2)
	require.ErrorIs(t, err, ErrShortTransfer)
}
