// Package scan drives one IBAN scan: recognized lines per frame go through the
// extractor into a string tracker until a single account number is stable.
package scan

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"ibanscan/pkg/iban"
	"ibanscan/pkg/tracker"
)

// LineRecognizer turns one frame into recognized text lines.
type LineRecognizer interface {
	RecognizeLines(ctx context.Context, img image.Image) ([]string, error)
}

// Result is the stable account number a session settled on.
type Result struct {
	SessionID string    `json:"session_id"`
	Digits    string    `json:"iban"`
	Country   string    `json:"country,omitempty"`
	Formatted string    `json:"formatted"`
	Frame     int64     `json:"frame"`
	Source    string    `json:"source,omitempty"`
	At        time.Time `json:"at"`
}

// FrameReport describes what one frame contributed.
type FrameReport struct {
	Frame      int64            `json:"frame"`
	Candidates []iban.Candidate `json:"candidates,omitempty"`
	Stopped    bool             `json:"stopped"`
	Result     *Result          `json:"result,omitempty"`
}

// Status is a snapshot of a session.
type Status struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	Frame     int64     `json:"frame"`
	Tracked   int       `json:"tracked"`
	Best      string    `json:"best,omitempty"`
	BestCount int64     `json:"best_count"`
	Stopped   bool      `json:"stopped"`
	Result    *Result   `json:"result,omitempty"`
	Touched   time.Time `json:"touched"`
}

// Session owns one tracker. Calls are serialized internally, so a session can
// be shared, but frames must still be submitted in capture order.
type Session struct {
	id         string
	owner      string
	source     string
	recognizer LineRecognizer
	onStable   func(Result)
	now        func() time.Time

	mu        sync.Mutex
	tracker   *tracker.Tracker
	countries map[string]string
	stopped   bool
	result    *Result
	touched   time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTrackerOptions passes options to the session's tracker.
func WithTrackerOptions(opts ...tracker.Option) SessionOption {
	return func(s *Session) { s.tracker = tracker.New(opts...) }
}

// WithRecognizer sets the recognizer used by ProcessImage and Run.
func WithRecognizer(r LineRecognizer) SessionOption {
	return func(s *Session) { s.recognizer = r }
}

// WithOnStable registers the single-shot callback fired when a result is found.
func WithOnStable(fn func(Result)) SessionOption {
	return func(s *Session) { s.onStable = fn }
}

// WithSource labels results (camera, watch, ...).
func WithSource(source string) SessionOption {
	return func(s *Session) { s.source = source }
}

// WithOwner records who may use the session.
func WithOwner(owner string) SessionOption {
	return func(s *Session) { s.owner = owner }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession returns a scanning session.
func NewSession(id string, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		now:       time.Now,
		tracker:   tracker.New(),
		countries: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touched = s.now()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Owner returns the owner set with WithOwner.
func (s *Session) Owner() string { return s.owner }

// ProcessLines runs one frame worth of recognized lines through the extractor
// and the tracker. Once a result is found the session stops and ignores
// frames until Rearm.
func (s *Session) ProcessLines(lines []string) FrameReport {
	report, cb := s.processLines(lines)
	if cb != nil {
		cb()
	}
	return report
}

func (s *Session) processLines(lines []string) (FrameReport, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	if s.stopped {
		return FrameReport{Frame: s.tracker.FrameIndex(), Stopped: true}, nil
	}

	cands := iban.ExtractAll(lines)
	digits := make([]string, 0, len(cands))
	for _, c := range cands {
		digits = append(digits, c.Match.Digits)
		if c.Match.Country != "" {
			s.countries[c.Match.Digits] = c.Match.Country
		}
	}
	report := FrameReport{Frame: s.tracker.FrameIndex(), Candidates: cands}
	s.tracker.LogFrame(digits)
	framesTotal.Inc()
	candidatesTotal.Add(float64(len(cands)))

	stable, ok := s.tracker.StableString()
	if !ok {
		s.forgetCountries()
		return report, nil
	}
	s.tracker.Reset(stable)
	country := s.countries[stable]
	res := Result{
		SessionID: s.id,
		Digits:    stable,
		Country:   country,
		Formatted: iban.Format(stable, country),
		Frame:     report.Frame,
		Source:    s.source,
		At:        s.now(),
	}
	s.countries = make(map[string]string)
	s.stopped = true
	s.result = &res
	report.Stopped = true
	report.Result = &res
	stableTotal.Inc()
	log.Printf("SCAN stable session=%s iban=%s frame=%d", s.id, res.Formatted, res.Frame)

	if s.onStable == nil {
		return report, nil
	}
	fn := s.onStable
	return report, func() { fn(res) }
}

// forgetCountries drops prefixes of strings the tracker already pruned.
func (s *Session) forgetCountries() {
	for d := range s.countries {
		if _, ok := s.tracker.Observation(d); !ok {
			delete(s.countries, d)
		}
	}
}

// ProcessImage recognizes img and processes the resulting lines as one frame.
func (s *Session) ProcessImage(ctx context.Context, img image.Image) (FrameReport, error) {
	if s.recognizer == nil {
		return FrameReport{}, ErrNoRecognizer
	}
	if s.Stopped() {
		return s.ProcessLines(nil), nil
	}
	lines, err := s.recognizer.RecognizeLines(ctx, img)
	if err != nil {
		return FrameReport{}, fmt.Errorf("recognize frame: %w", err)
	}
	return s.ProcessLines(lines), nil
}

// Run consumes frames in order until a stable result, the end of the stream
// or ctx cancellation. Frames that fail recognition are dropped.
func (s *Session) Run(ctx context.Context, frames <-chan image.Image) (Result, error) {
	if res, ok := s.Result(); ok {
		return res, nil
	}
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case img, ok := <-frames:
			if !ok {
				return Result{}, ErrStreamClosed
			}
			rep, err := s.ProcessImage(ctx, img)
			if err != nil {
				if ctx.Err() != nil {
					return Result{}, ctx.Err()
				}
				log.Printf("SCAN frame dropped session=%s: %v", s.id, err)
				continue
			}
			if rep.Result != nil {
				return *rep.Result, nil
			}
		}
	}
}

// Rearm resumes scanning after a result. The accepted string was already
// removed from the tracker, so it has to reach the threshold again.
func (s *Session) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
	s.result = nil
	s.touched = s.now()
}

// Stopped reports whether the session found a result and is waiting for Rearm.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Result returns the last stable result since the previous Rearm.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	best, count := s.tracker.Best()
	st := Status{
		ID:        s.id,
		Source:    s.source,
		Frame:     s.tracker.FrameIndex(),
		Tracked:   s.tracker.Len(),
		Best:      best,
		BestCount: count,
		Stopped:   s.stopped,
		Touched:   s.touched,
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}
