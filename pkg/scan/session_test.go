package scan

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibanscan/pkg/tracker"
)

const sticker = "TR330006100519786457841326"

// scriptedRecognizer returns one scripted set of lines per call.
type scriptedRecognizer struct {
	frames [][]string
	errAt  map[int]error
	calls  int
}

func (r *scriptedRecognizer) RecognizeLines(ctx context.Context, img image.Image) ([]string, error) {
	i := r.calls
	r.calls++
	if err := r.errAt[i]; err != nil {
		return nil, err
	}
	if i < len(r.frames) {
		return r.frames[i], nil
	}
	return nil, nil
}

func blank() image.Image { return image.NewGray(image.Rect(0, 0, 4, 4)) }

func TestEndToEndStableOnEleventhFrame(t *testing.T) {
	var fired []Result
	s := NewSession("s1", WithOnStable(func(r Result) { fired = append(fired, r) }), WithSource("camera"))

	for frame := 0; frame < 11; frame++ {
		rep := s.ProcessLines([]string{sticker})
		assert.Equal(t, int64(frame), rep.Frame)
		require.Len(t, rep.Candidates, 1)
		if frame < 10 {
			assert.Nil(t, rep.Result, "frame %d", frame)
			assert.False(t, rep.Stopped)
			continue
		}
		require.NotNil(t, rep.Result)
		assert.Equal(t, "330006100519786457841326", rep.Result.Digits)
		assert.Equal(t, "TR", rep.Result.Country)
		assert.Equal(t, "TR33 0006 1005 1978 6457 8413 26", rep.Result.Formatted)
		assert.Equal(t, int64(10), rep.Result.Frame)
		assert.Equal(t, "camera", rep.Result.Source)
		assert.Equal(t, "s1", rep.Result.SessionID)
	}
	require.Len(t, fired, 1)
	assert.True(t, s.Stopped())
}

func TestStoppedSessionIgnoresFrames(t *testing.T) {
	calls := 0
	s := NewSession("s2", WithOnStable(func(Result) { calls++ }))
	for i := 0; i < 11; i++ {
		s.ProcessLines([]string{sticker})
	}
	before := s.Status().Frame
	for i := 0; i < 20; i++ {
		rep := s.ProcessLines([]string{sticker})
		assert.True(t, rep.Stopped)
		assert.Nil(t, rep.Result)
	}
	assert.Equal(t, before, s.Status().Frame)
	assert.Equal(t, 1, calls)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "330006100519786457841326", res.Digits)
}

func TestRearmRequiresFullThresholdAgain(t *testing.T) {
	calls := 0
	s := NewSession("s3", WithOnStable(func(Result) { calls++ }))
	for i := 0; i < 11; i++ {
		s.ProcessLines([]string{sticker})
	}
	s.Rearm()
	assert.False(t, s.Stopped())
	_, ok := s.Result()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		rep := s.ProcessLines([]string{sticker})
		assert.Nil(t, rep.Result, "frame %d after rearm", i)
	}
	rep := s.ProcessLines([]string{sticker})
	require.NotNil(t, rep.Result)
	assert.Equal(t, int64(21), rep.Result.Frame)
	assert.Equal(t, 2, calls)
}

func TestNonIbanLinesAreSkipped(t *testing.T) {
	s := NewSession("s4")
	for i := 0; i < 50; i++ {
		rep := s.ProcessLines([]string{"ACME LTD", "Hesap No: 12345", "TR33 0006 1005 1978 6457 84X3 26"})
		assert.Empty(t, rep.Candidates)
		assert.Nil(t, rep.Result)
	}
	assert.Equal(t, 0, s.Status().Tracked)
}

func TestTrackerOptionsApply(t *testing.T) {
	s := NewSession("s5", WithTrackerOptions(tracker.WithThreshold(2)))
	s.ProcessLines([]string{sticker})
	s.ProcessLines([]string{sticker})
	rep := s.ProcessLines([]string{sticker})
	assert.NotNil(t, rep.Result)
}

func TestCallbackMayReenterSession(t *testing.T) {
	var s *Session
	done := make(chan Status, 1)
	s = NewSession("s6", WithOnStable(func(Result) { done <- s.Status() }))
	for i := 0; i < 11; i++ {
		s.ProcessLines([]string{sticker})
	}
	select {
	case st := <-done:
		assert.True(t, st.Stopped)
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
}

func TestProcessImageWithoutRecognizer(t *testing.T) {
	s := NewSession("s7")
	_, err := s.ProcessImage(context.Background(), blank())
	assert.ErrorIs(t, err, ErrNoRecognizer)
}

func TestRunStopsOnStable(t *testing.T) {
	script := make([][]string, 0, 15)
	for i := 0; i < 15; i++ {
		script = append(script, []string{"noise", sticker})
	}
	rec := &scriptedRecognizer{frames: script, errAt: map[int]error{3: errors.New("blurry")}}
	s := NewSession("s8", WithRecognizer(rec))

	frames := make(chan image.Image, 20)
	for i := 0; i < 20; i++ {
		frames <- blank()
	}
	res, err := s.Run(context.Background(), frames)
	require.NoError(t, err)
	assert.Equal(t, "330006100519786457841326", res.Digits)
	// the failed frame never reached the tracker
	assert.Equal(t, int64(10), res.Frame)
	assert.Equal(t, 12, rec.calls)
}

func TestRunStreamClosed(t *testing.T) {
	s := NewSession("s9", WithRecognizer(&scriptedRecognizer{}))
	frames := make(chan image.Image, 3)
	for i := 0; i < 3; i++ {
		frames <- blank()
	}
	close(frames)
	_, err := s.Run(context.Background(), frames)
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, int64(3), s.Status().Frame)
}

func TestRunCancelled(t *testing.T) {
	s := NewSession("s10", WithRecognizer(&scriptedRecognizer{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, make(chan image.Image))
	assert.ErrorIs(t, err, context.Canceled)
}
