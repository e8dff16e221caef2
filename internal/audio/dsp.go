package audio

import (
	"math"
	"time"
)

// Silence returns a silent clip of the given duration.
func Silence(d time.Duration, sampleRate, channels int) *Clip {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	frames := int(d.Seconds() * float64(sampleRate))
	return &Clip{
		Samples:    make([]float64, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Tone returns a mono sine wave at the given frequency and amplitude.
func Tone(freq float64, d time.Duration, amplitude float64, sampleRate int) *Clip {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	frames := int(d.Seconds() * float64(sampleRate))
	out := &Clip{
		Samples:    make([]float64, frames),
		SampleRate: sampleRate,
		Channels:   1,
	}
	for i := 0; i < frames; i++ {
		out.Samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Concat joins clips end to end in order. Clips are conformed to the sample
// rate and channel count of the first clip. An empty input yields nil.
func Concat(clips ...*Clip) *Clip {
	if len(clips) == 0 {
		return nil
	}
	first := clips[0]
	out := &Clip{
		SampleRate: first.SampleRate,
		Channels:   first.Channels,
	}
	for _, c := range clips {
		conformed := Conform(c, first.SampleRate, first.Channels)
		out.Samples = append(out.Samples, conformed.Samples...)
	}
	return out
}

// Overlay mixes over on top of base additively. The result has the length of
// base; any excess of over is dropped. Samples are clamped to full scale.
func Overlay(base, over *Clip) *Clip {
	out := base.Clone()
	conformed := Conform(over, base.SampleRate, base.Channels)
	n := len(out.Samples)
	if len(conformed.Samples) < n {
		n = len(conformed.Samples)
	}
	for i := 0; i < n; i++ {
		out.Samples[i] = clamp(out.Samples[i] + conformed.Samples[i])
	}
	return out
}

// LoopTo tiles the clip until it covers the given duration, then truncates to
// that exact length.
func LoopTo(c *Clip, d time.Duration) *Clip {
	want := int(d.Seconds()*float64(c.SampleRate)) * c.Channels
	out := &Clip{
		Samples:    make([]float64, 0, want),
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}
	if len(c.Samples) == 0 || want == 0 {
		out.Samples = make([]float64, want)
		return out
	}
	for len(out.Samples) < want {
		out.Samples = append(out.Samples, c.Samples...)
	}
	out.Samples = out.Samples[:want]
	return out
}

// PadTo extends the clip with trailing silence up to the given duration.
// Clips already long enough are returned unchanged.
func PadTo(c *Clip, d time.Duration) *Clip {
	if c.Duration() >= d {
		return c
	}
	want := int(d.Seconds()*float64(c.SampleRate)) * c.Channels
	out := c.Clone()
	for len(out.Samples) < want {
		out.Samples = append(out.Samples, 0)
	}
	return out
}

// FadeIn applies a linear fade-in over the leading portion of the clip.
func FadeIn(c *Clip, d time.Duration) *Clip {
	out := c.Clone()
	n := fadeSamples(c, d)
	for i := 0; i < n && i < len(out.Samples); i++ {
		out.Samples[i] *= float64(i) / float64(n)
	}
	return out
}

// FadeOut applies a linear fade-out over the trailing portion of the clip.
func FadeOut(c *Clip, d time.Duration) *Clip {
	out := c.Clone()
	n := fadeSamples(c, d)
	total := len(out.Samples)
	for i := 0; i < n && i < total; i++ {
		out.Samples[total-1-i] *= float64(i) / float64(n)
	}
	return out
}

// Normalize applies peak normalization, scaling the clip so its peak sits
// headroom dB below full scale. Silent clips pass through unchanged.
func Normalize(c *Clip, headroomDB float64) *Clip {
	peak := c.Peak()
	if peak == 0 {
		return c
	}
	target := math.Pow(10, -headroomDB/20)
	gainDB := 20 * math.Log10(target/peak)
	return c.ApplyGain(gainDB)
}

// Conform converts a clip to the given sample rate and channel count.
// Channel conversion mixes down to mono or replicates mono across channels;
// rate conversion uses linear interpolation. The input is returned unchanged
// when it already matches.
func Conform(c *Clip, sampleRate, channels int) *Clip {
	if c.SampleRate == sampleRate && c.Channels == channels {
		return c
	}

	mono := toMono(c)
	frames := len(mono)
	if frames == 0 {
		return &Clip{SampleRate: sampleRate, Channels: channels}
	}
	outFrames := frames
	if c.SampleRate != sampleRate && c.SampleRate > 0 {
		outFrames = int(float64(frames) * float64(sampleRate) / float64(c.SampleRate))
	}

	out := &Clip{
		Samples:    make([]float64, outFrames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * float64(frames-1) / float64(max(outFrames-1, 1))
		lo := int(pos)
		hi := lo + 1
		if hi >= frames {
			hi = frames - 1
		}
		frac := pos - float64(lo)
		s := mono[lo]*(1-frac) + mono[hi]*frac
		for ch := 0; ch < channels; ch++ {
			out.Samples[i*channels+ch] = s
		}
	}
	return out
}

func toMono(c *Clip) []float64 {
	if c.Channels <= 1 {
		return c.Samples
	}
	frames := len(c.Samples) / c.Channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		mono[i] = sum / float64(c.Channels)
	}
	return mono
}

func fadeSamples(c *Clip, d time.Duration) int {
	n := int(d.Seconds()*float64(c.SampleRate)) * c.Channels
	if n <= 0 {
		n = 1
	}
	if n > len(c.Samples) {
		n = len(c.Samples)
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
