package framescan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibanscan/pkg/scan"
)

const acct = "TR33 0006 1005 1978 6457 8413 26"

// textRecognizer returns the lines encoded in a frame's width: width w maps
// to script[w]. Early frames sleep longer so workers finish out of order.
type textRecognizer struct {
	script map[int][]string
	mu     sync.Mutex
	calls  int
}

func (r *textRecognizer) RecognizeLines(ctx context.Context, img image.Image) ([]string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	w := img.Bounds().Dx()
	time.Sleep(time.Duration(40-w) * time.Millisecond)
	return r.script[w], nil
}

// writeFrames creates n frames named f00.png... with width index+1.
func writeFrames(t *testing.T, dir string, n int) []string {
	t.Helper()
	var names []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%02d.png", i)
		img := imaging.New(i+1, 2, image.White.C)
		require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
		names = append(names, name)
	}
	return names
}

func allLines(n int, lines ...string) map[int][]string {
	m := make(map[int][]string, n)
	for i := 1; i <= n; i++ {
		m[i] = lines
	}
	return m
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.jpg", "a.PNG", "c.txt", "x.preproc.png", "d.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))
	assert.Equal(t, []string{"a.PNG", "b.jpg", "d.webp"}, ListFrames(dir))
	assert.Nil(t, ListFrames(filepath.Join(dir, "missing")))
}

func TestScanDirFeedsFramesInOrder(t *testing.T) {
	dir := t.TempDir()
	names := writeFrames(t, dir, 20)
	rec := &textRecognizer{script: allLines(20, "noise", acct)}
	var fed []string
	s := New(dir, rec, scan.NewSession("dir"), WithWorkers(4), WithFrameHook(func(name string, rep scan.FrameReport) {
		fed = append(fed, name)
	}))

	results, err := s.ScanDir(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "330006100519786457841326", results[0].Digits)
	assert.Equal(t, "TR", results[0].Country)
	assert.Equal(t, int64(10), results[0].Frame)
	assert.Equal(t, names[:11], fed)
}

func TestScanDirContinuous(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 22)
	rec := &textRecognizer{script: allLines(22, acct)}
	s := New(dir, rec, scan.NewSession("dir"), WithWorkers(3), WithContinuous(true))

	results, err := s.ScanDir(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(10), results[0].Frame)
	assert.Equal(t, int64(21), results[1].Frame)
}

func TestScanDirNoResult(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 5)
	s := New(dir, &textRecognizer{script: allLines(5, acct)}, scan.NewSession("dir"))
	_, err := s.ScanDir(context.Background())
	assert.True(t, errors.Is(err, scan.ErrStreamClosed))
}

func TestScanDirSkipsUndecodableFrames(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 12)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f05a.png"), []byte("not an image"), 0o644))
	var fed int
	s := New(dir, &textRecognizer{script: allLines(12, acct)}, scan.NewSession("dir"),
		WithFrameHook(func(string, scan.FrameReport) { fed++ }))

	results, err := s.ScanDir(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(10), results[0].Frame)
	assert.Equal(t, 11, fed)
}

func TestScanDirMovesProcessed(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 11)
	s := New(dir, &textRecognizer{script: allLines(11, acct)}, scan.NewSession("dir"), WithMove(true))

	_, err := s.ScanDir(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ListFrames(dir))
	assert.Len(t, ListFrames(filepath.Join(dir, ProcessedDir)), 11)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	names := make(chan string)
	s := New(t.TempDir(), &textRecognizer{}, scan.NewSession("dir"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := s.Run(ctx, names)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWatchEmitsNewFrames(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	names, err := Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, imaging.Save(imaging.New(4, 4, image.White.C), filepath.Join(dir, "a.png")))

	select {
	case name := <-names:
		assert.Equal(t, "a.png", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame emitted")
	}

	cancel()
	for range names {
	}
}
