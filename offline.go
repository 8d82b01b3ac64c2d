package midisynth

import (
	"bytes"
	"encoding/binary"

	intaudio "github.com/cbegin/midisynth-go/internal/audio"
	intdisp "github.com/cbegin/midisynth-go/internal/dispatch"
)

// RenderNote runs the live render pipeline for one event without a queue or
// a device. The AM index is clamped as in a default engine.
func RenderNote(ev NoteEvent, p Parameters) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return intdisp.Render(ev, p, intdisp.DefaultRenderOptions())
}

// wavHeader is the canonical 44-byte RIFF header for IEEE float PCM.
type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

const wavFormatIEEEFloat = 3

// EncodeWAVFloat32LE writes a mono buffer as a 32-bit float WAV file with
// the signal copied to every channel. Samples are clipped to [-1, 1].
func EncodeWAVFloat32LE(samples []float64, sampleRate int, channels int) []byte {
	channels = max(channels, 1)
	data := intaudio.EncodeFloat32LE(samples, channels)
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(data)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        wavFormatIEEEFloat,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 4),
		BlockAlign:    uint16(channels * 4),
		BitsPerSample: 32,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(data)),
	}
	var buf bytes.Buffer
	buf.Grow(44 + len(data))
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(data)
	return buf.Bytes()
}
