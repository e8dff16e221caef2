package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotWAV indicates the data does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("audio: not a WAV stream")
	// ErrWAVFormat indicates an unsupported or malformed WAV stream.
	ErrWAVFormat = errors.New("audio: unsupported WAV format")
)

// IsWAV reports whether the data carries a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// DecodeWAV parses a 16-bit PCM WAV stream into a Clip.
func DecodeWAV(data []byte) (*Clip, error) {
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	// Walk the chunk list; fmt must precede data.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrWAVFormat)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 { // PCM
				return nil, fmt.Errorf("%w: codec %d", ErrWAVFormat, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if sampleRate == 0 || channels == 0 || pcm == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrWAVFormat)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrWAVFormat, bitsPerSample)
	}

	count := len(pcm) / 2
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float64(v) / 32768.0
	}

	return &Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// EncodeWAV renders the clip as a 16-bit PCM WAV stream.
func EncodeWAV(c *Clip) []byte {
	channels := c.Channels
	if channels <= 0 {
		channels = 1
	}
	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	dataSize := len(c.Samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(channels*2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))                    // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range c.Samples {
		v := int16(math.Round(clamp(s) * 32767))
		binary.Write(buf, binary.LittleEndian, v)
	}

	return buf.Bytes()
}
