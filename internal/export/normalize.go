package export

import (
	"math"
	"time"

	"github.com/podforge/podforge/internal/audio"
)

// Normalization constants. The 500 ms floor avoids concatenation artifacts
// on very short clips; the gain trigger and cap keep quiet user recordings
// audible without amplifying near-silent captures into distortion.
const (
	// MinClipDuration is the floor every normalized clip is padded to.
	MinClipDuration = 500 * time.Millisecond

	// UserTargetDBFS is the loudness target for user-recorded clips.
	UserTargetDBFS = -18.0

	gainTriggerDB = 10.0
	maxBoostDB    = 20.0
	peakCeilingDB = 0.1
)

// Normalize brings a clip to the standard peak ceiling and pads it to the
// minimum duration. It only ever attenuates; boosting is the business of
// NormalizeWithGain and of cross-clip balancing in the timeline assembler.
// Normalization is cosmetic: a clip that cannot be measured passes through
// with only the duration floor applied.
func Normalize(c *audio.Clip) *audio.Clip {
	if c == nil {
		return nil
	}

	out := c
	peak := c.Peak()
	ceiling := math.Pow(10, -peakCeilingDB/20)
	if peak > ceiling {
		out = c.ApplyGain(20 * math.Log10(ceiling/peak))
	}

	return audio.PadTo(out, MinClipDuration)
}

// NormalizeWithGain measures the clip first: if it is more than 10 dB
// quieter than target, the shortfall is applied as gain, capped at +20 dB,
// before the standard normalize-and-pad step.
func NormalizeWithGain(c *audio.Clip, targetDBFS float64) *audio.Clip {
	if c == nil {
		return nil
	}

	loudness := c.DBFS()
	if !math.IsInf(loudness, -1) {
		shortfall := targetDBFS - loudness
		if shortfall > gainTriggerDB {
			boost := math.Min(shortfall, maxBoostDB)
			c = c.ApplyGain(boost)
		}
	}

	return Normalize(c)
}
