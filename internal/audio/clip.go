// Package audio provides in-memory PCM clips and the signal operations the
// export pipeline is built from: loudness measurement, gain, normalization,
// concatenation, overlay mixing, looping, fades, and tone/silence generation.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is used for generated silence and tones when the caller
// has no other clip to match against.
const DefaultSampleRate = 44100

// Clip is a decoded audio buffer. Samples are interleaved float64 in the
// range [-1, 1]. A Clip is owned by the pipeline invocation that created it
// and is never shared across concurrent exports.
type Clip struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Duration reports the clip length.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// DBFS reports the RMS loudness of the clip relative to full scale.
// A silent clip measures -Inf.
func (c *Clip) DBFS() float64 {
	if c == nil || len(c.Samples) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, s := range c.Samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(c.Samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Peak reports the maximum absolute sample value.
func (c *Clip) Peak() float64 {
	var peak float64
	for _, s := range c.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// ApplyGain returns a copy of the clip with the given gain in dB applied.
// Samples are clamped to [-1, 1].
func (c *Clip) ApplyGain(db float64) *Clip {
	factor := math.Pow(10, db/20)
	out := &Clip{
		Samples:    make([]float64, len(c.Samples)),
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}
	for i, s := range c.Samples {
		out.Samples[i] = clamp(s * factor)
	}
	return out
}

// Clone returns a deep copy of the clip.
func (c *Clip) Clone() *Clip {
	out := &Clip{
		Samples:    make([]float64, len(c.Samples)),
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}
	copy(out.Samples, c.Samples)
	return out
}

// IsSilent reports whether the clip carries no audible signal.
func (c *Clip) IsSilent() bool {
	return math.IsInf(c.DBFS(), -1)
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
