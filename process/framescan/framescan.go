// Package framescan treats the image files of a directory as a camera frame
// stream: files are recognized in parallel and fed to a scan session strictly
// in order.
package framescan

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"ibanscan/pkg/scan"
)

// ProcessedDir is the subdirectory frames are moved to after processing.
const ProcessedDir = "processed"

// Scanner feeds directory frames to one session.
type Scanner struct {
	dir        string
	recognizer scan.LineRecognizer
	session    *scan.Session
	workers    int
	continuous bool
	move       bool
	onFrame    func(name string, rep scan.FrameReport)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the OCR worker pool size (default NumCPU).
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithContinuous keeps scanning after a result: the session is re-armed and
// Run only returns when the stream ends or ctx is done.
func WithContinuous(on bool) Option {
	return func(s *Scanner) { s.continuous = on }
}

// WithMove moves every frame fed to the tracker into <dir>/processed.
func WithMove(on bool) Option {
	return func(s *Scanner) { s.move = on }
}

// WithFrameHook is called for every frame in feed order.
func WithFrameHook(fn func(name string, rep scan.FrameReport)) Option {
	return func(s *Scanner) { s.onFrame = fn }
}

// New returns a scanner over dir.
func New(dir string, rec scan.LineRecognizer, session *scan.Session, opts ...Option) *Scanner {
	s := &Scanner{
		dir:        dir,
		recognizer: rec,
		session:    session,
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type frame struct {
	seq   int
	name  string
	lines []string
	err   error
}

// Run recognizes the named frames with the worker pool and feeds them to the
// session in the order they arrive on names. Frames that cannot be decoded or
// recognized are skipped. It returns the results found; scan.ErrStreamClosed
// when names closes without any.
func (s *Scanner) Run(ctx context.Context, names <-chan string) ([]scan.Result, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan frame)
	done := make(chan frame)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				f.lines, f.err = s.recognize(ctx, f.name)
				select {
				case done <- f:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for seq := 0; ; seq++ {
			var name string
			select {
			case <-ctx.Done():
				return
			case n, ok := <-names:
				if !ok {
					return
				}
				name = n
			}
			select {
			case jobs <- frame{seq: seq, name: name}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	// Workers finish out of order; pending holds frames until their turn.
	pending := make(map[int]frame)
	next := 0
	var results []scan.Result
	for f := range done {
		pending[f.seq] = f
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if p.err != nil {
				log.Printf("WARN frame %s skipped: %v", p.name, p.err)
				continue
			}
			rep := s.session.ProcessLines(p.lines)
			if s.onFrame != nil {
				s.onFrame(p.name, rep)
			}
			if s.move {
				if err := moveToProcessed(s.dir, p.name); err != nil {
					log.Printf("WARN failed to move processed file %s: %v", p.name, err)
				}
			}
			if rep.Result == nil {
				continue
			}
			results = append(results, *rep.Result)
			if !s.continuous {
				return results, nil
			}
			s.session.Rearm()
		}
	}
	if err := parent.Err(); err != nil {
		return results, err
	}
	if len(results) == 0 {
		return nil, scan.ErrStreamClosed
	}
	return results, nil
}

// ScanDir runs over the frames currently in the directory, in name order.
func (s *Scanner) ScanDir(ctx context.Context) ([]scan.Result, error) {
	files := ListFrames(s.dir)
	names := make(chan string, len(files))
	for _, f := range files {
		names <- f
	}
	close(names)
	return s.Run(ctx, names)
}

func (s *Scanner) recognize(ctx context.Context, name string) ([]string, error) {
	img, err := imaging.Open(filepath.Join(s.dir, name), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return s.recognizer.RecognizeLines(ctx, img)
}

// ListFrames returns the supported image files of dir sorted by name.
func ListFrames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// IsSupportedExt reports whether name looks like a frame image.
func IsSupportedExt(name string) bool {
	// ignore debug output written next to frames
	if strings.Contains(name, ".preproc.") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}
