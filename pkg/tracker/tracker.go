// Package tracker votes over per-frame candidate strings and reports a string
// once it has been seen in enough recent frames.
package tracker

import "sort"

const (
	// DefaultWindow is how many frames a string may go unseen before it is
	// forgotten (about one second of video).
	DefaultWindow = 30
	// DefaultThreshold is the count a string must reach to be stable. The
	// first sighting counts as 0, so this is Threshold+1 sightings.
	DefaultThreshold = 10
)

// Observation is the per-string record kept by a Tracker.
type Observation struct {
	LastSeen int64
	Count    int64
}

// Tracker is a temporal string stabilizer. It is not safe for concurrent use;
// callers feed it one frame at a time from a single goroutine.
type Tracker struct {
	window    int64
	threshold int64

	frameIndex int64
	seen       map[string]Observation
	bestCount  int64
	bestString string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow overrides the number of frames after which unseen strings are pruned.
func WithWindow(frames int64) Option {
	return func(t *Tracker) {
		if frames > 0 {
			t.window = frames
		}
	}
}

// WithThreshold overrides the count required before a string is stable.
func WithThreshold(count int64) Option {
	return func(t *Tracker) {
		if count > 0 {
			t.threshold = count
		}
	}
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		window:    DefaultWindow,
		threshold: DefaultThreshold,
		seen:      make(map[string]Observation),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LogFrame records the candidates of one frame. An empty slice is a valid
// frame and only ages existing records.
func (t *Tracker) LogFrame(candidates []string) {
	for _, s := range candidates {
		obs, ok := t.seen[s]
		if !ok {
			obs = Observation{Count: -1}
		}
		obs.LastSeen = t.frameIndex
		obs.Count++
		t.seen[s] = obs
	}

	// Keys are visited in sorted order so that equal counts always resolve to
	// the lexicographically smallest string.
	keys := make([]string, 0, len(t.seen))
	for s := range t.seen {
		keys = append(keys, s)
	}
	sort.Strings(keys)

	t.bestCount, t.bestString = 0, ""
	var obsolete []string
	for _, s := range keys {
		obs := t.seen[s]
		if obs.LastSeen < t.frameIndex-t.window {
			obsolete = append(obsolete, s)
			continue
		}
		if obs.Count > t.bestCount {
			t.bestCount = obs.Count
			t.bestString = s
		}
	}
	for _, s := range obsolete {
		delete(t.seen, s)
	}

	t.frameIndex++
}

// StableString returns the best string once its count reached the threshold.
func (t *Tracker) StableString() (string, bool) {
	if t.bestCount >= t.threshold {
		return t.bestString, true
	}
	return "", false
}

// Reset forgets s and clears the best candidate so that s has to
// re-accumulate from scratch.
func (t *Tracker) Reset(s string) {
	delete(t.seen, s)
	t.bestCount = 0
	t.bestString = ""
}

// FrameIndex is the index the next logged frame will get.
func (t *Tracker) FrameIndex() int64 { return t.frameIndex }

// Observation returns the record kept for s.
func (t *Tracker) Observation(s string) (Observation, bool) {
	obs, ok := t.seen[s]
	return obs, ok
}

// Best returns the current best string and its count.
func (t *Tracker) Best() (string, int64) { return t.bestString, t.bestCount }

// Len is the number of strings currently tracked.
func (t *Tracker) Len() int { return len(t.seen) }
