package tracker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	acct  = "330006100519786457841326"
	other = "120001000000000000000001"
)

func TestStableAfterElevenFrames(t *testing.T) {
	tr := New()
	for frame := 0; frame <= 10; frame++ {
		tr.LogFrame([]string{acct})
		got, ok := tr.StableString()
		if frame < 10 {
			assert.False(t, ok, "frame %d", frame)
			assert.Empty(t, got)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, acct, got)
	}
	assert.Equal(t, int64(11), tr.FrameIndex())
}

func TestFirstSightCountsZero(t *testing.T) {
	tr := New()
	tr.LogFrame([]string{acct})
	obs, ok := tr.Observation(acct)
	require.True(t, ok)
	assert.Equal(t, int64(0), obs.Count)
	assert.Equal(t, int64(0), obs.LastSeen)
}

func TestPrunedAfterWindow(t *testing.T) {
	tr := New()
	tr.LogFrame([]string{acct})
	for i := 0; i < 30; i++ {
		tr.LogFrame(nil)
	}
	_, ok := tr.Observation(acct)
	assert.True(t, ok, "still inside the window after 30 silent frames")

	tr.LogFrame(nil)
	_, ok = tr.Observation(acct)
	assert.False(t, ok, "pruned after 31 silent frames")
	assert.Equal(t, 0, tr.Len())

	tr.LogFrame([]string{acct})
	obs, ok := tr.Observation(acct)
	require.True(t, ok)
	assert.Equal(t, int64(0), obs.Count)
	assert.Equal(t, int64(32), obs.LastSeen)
}

func TestCountKeepsRisingWithinWindow(t *testing.T) {
	tr := New()
	tr.LogFrame([]string{acct})
	for i := 0; i < 29; i++ {
		tr.LogFrame(nil)
	}
	tr.LogFrame([]string{acct})
	obs, _ := tr.Observation(acct)
	assert.Equal(t, int64(1), obs.Count)
}

func TestResetRequiresFullReaccumulation(t *testing.T) {
	tr := New()
	for i := 0; i < 11; i++ {
		tr.LogFrame([]string{"XYZ"})
	}
	_, ok := tr.StableString()
	require.True(t, ok)

	tr.Reset("XYZ")
	_, ok = tr.StableString()
	assert.False(t, ok)
	_, tracked := tr.Observation("XYZ")
	assert.False(t, tracked)

	for i := 0; i < 10; i++ {
		tr.LogFrame([]string{"XYZ"})
		_, ok = tr.StableString()
		assert.False(t, ok, "re-accumulation frame %d", i)
	}
	tr.LogFrame([]string{"XYZ"})
	got, ok := tr.StableString()
	require.True(t, ok)
	assert.Equal(t, "XYZ", got)
}

func TestBestDropsWhenPruned(t *testing.T) {
	tr := New()
	for i := 0; i < 5; i++ {
		tr.LogFrame([]string{acct})
	}
	best, count := tr.Best()
	assert.Equal(t, acct, best)
	assert.Equal(t, int64(4), count)

	for i := 0; i < 31; i++ {
		tr.LogFrame(nil)
	}
	best, count = tr.Best()
	assert.Empty(t, best)
	assert.Zero(t, count)
}

func TestNoisyStreamNeverStable(t *testing.T) {
	tr := New()
	for i := 0; i < 500; i++ {
		tr.LogFrame([]string{fmt.Sprintf("%024d", i)})
		_, ok := tr.StableString()
		require.False(t, ok, "frame %d", i)
	}
}

func TestRecurrenceOutsideWindowNeverStable(t *testing.T) {
	tr := New()
	for i := 0; i < 1000; i++ {
		var frame []string
		switch i % 64 {
		case 0:
			frame = []string{acct}
		case 32:
			frame = []string{other}
		}
		tr.LogFrame(frame)
		_, ok := tr.StableString()
		require.False(t, ok, "frame %d", i)
	}
}

// Strings alternating every frame stay inside the window, so each keeps
// accumulating and the earlier one reaches the threshold on its 11th sighting.
func TestAlternatingStringsStabilizeWithinWindow(t *testing.T) {
	tr := New()
	var stableAt int64 = -1
	for i := 0; i < 40 && stableAt < 0; i++ {
		s := acct
		if i%2 == 1 {
			s = other
		}
		tr.LogFrame([]string{s})
		if _, ok := tr.StableString(); ok {
			stableAt = tr.FrameIndex() - 1
		}
	}
	assert.Equal(t, int64(20), stableAt)
	got, _ := tr.StableString()
	assert.Equal(t, acct, got)
}

func TestTieBreakIsDeterministic(t *testing.T) {
	for run := 0; run < 20; run++ {
		tr := New()
		for i := 0; i < 11; i++ {
			tr.LogFrame([]string{acct, other})
		}
		got, ok := tr.StableString()
		require.True(t, ok)
		assert.Equal(t, other, got, "lexicographically smaller string wins ties")
	}
}

func TestDuplicatesInOneFrameCountTwice(t *testing.T) {
	tr := New()
	tr.LogFrame([]string{acct, acct})
	obs, _ := tr.Observation(acct)
	assert.Equal(t, int64(1), obs.Count)
}

func TestOptions(t *testing.T) {
	tr := New(WithThreshold(2), WithWindow(3))
	tr.LogFrame([]string{acct})
	tr.LogFrame([]string{acct})
	_, ok := tr.StableString()
	assert.False(t, ok)
	tr.LogFrame([]string{acct})
	_, ok = tr.StableString()
	assert.True(t, ok)

	tr = New(WithWindow(3))
	tr.LogFrame([]string{acct})
	for i := 0; i < 4; i++ {
		tr.LogFrame(nil)
	}
	assert.Equal(t, 0, tr.Len())

	tr = New(WithThreshold(0), WithWindow(-1))
	assert.Equal(t, int64(DefaultThreshold), tr.threshold)
	assert.Equal(t, int64(DefaultWindow), tr.window)
}
