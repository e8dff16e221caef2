package export

import (
	"math"
	"time"

	"github.com/podforge/podforge/internal/audio"
)

// Timeline balancing constants. The clamp bounds how far any one clip is
// pulled toward the timeline mean; deltas of 1 dB or less are left alone to
// avoid audible pumping between already-similar clips.
const (
	// PauseDuration is the silence inserted between consecutive message clips.
	PauseDuration = 500 * time.Millisecond

	balanceClampDB     = 10.0
	balanceThresholdDB = 1.0
)

// Timeline is the ordered, gapped sequence of clips for one conversation.
// Entries are never reordered or dropped once added.
type Timeline struct {
	entries []timelineEntry
}

type timelineEntry struct {
	clip  *audio.Clip
	pause bool
}

// Add appends a speech clip to the timeline.
func (t *Timeline) Add(clip *audio.Clip) {
	if clip == nil {
		return
	}
	t.entries = append(t.entries, timelineEntry{clip: clip})
}

// AddPause appends an inter-message silence gap matched to the preceding
// clip's format.
func (t *Timeline) AddPause() {
	rate, channels := audio.DefaultSampleRate, 1
	if n := len(t.entries); n > 0 {
		prev := t.entries[n-1].clip
		rate, channels = prev.SampleRate, prev.Channels
	}
	t.entries = append(t.entries, timelineEntry{
		clip:  audio.Silence(PauseDuration, rate, channels),
		pause: true,
	})
}

// Len reports the number of entries, pauses included.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Duration reports the total timeline duration: the sum of clip durations
// plus inserted silences.
func (t *Timeline) Duration() time.Duration {
	var d time.Duration
	for _, e := range t.entries {
		d += e.clip.Duration()
	}
	return d
}

// Assemble balances loudness across the timeline and concatenates every
// entry strictly in insertion order. Balancing corrects the relative level
// between speakers: each speech clip is pulled toward the mean dBFS of all
// non-silent clips, clamped to ±10 dB, and only when the delta exceeds 1 dB.
//
// With zero non-silent clips the first entry is returned unchanged: an
// all-failed or empty run still yields playable (if trivial) output.
func (t *Timeline) Assemble() *audio.Clip {
	if len(t.entries) == 0 {
		return nil
	}

	var (
		sum   float64
		count int
	)
	for _, e := range t.entries {
		if e.pause || e.clip.IsSilent() {
			continue
		}
		sum += e.clip.DBFS()
		count++
	}
	if count == 0 {
		return t.entries[0].clip
	}
	mean := sum / float64(count)

	clips := make([]*audio.Clip, 0, len(t.entries))
	for _, e := range t.entries {
		clip := e.clip
		if !e.pause && !clip.IsSilent() {
			delta := mean - clip.DBFS()
			delta = math.Max(-balanceClampDB, math.Min(balanceClampDB, delta))
			if math.Abs(delta) > balanceThresholdDB {
				clip = clip.ApplyGain(delta)
			}
		}
		clips = append(clips, clip)
	}

	return audio.Concat(clips...)
}
