// Package geolocation provides the device position to the navigation core.
package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
)

var (
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("geolocation timed out")
	ErrUnsupported      = errors.New("geolocation not supported")
)

// Options bound a position read.
type Options struct {
	// Timeout is how long to wait for a fix. Zero means no waiting.
	Timeout time.Duration
	// MaxAge is the oldest cached fix that may be returned. Zero forces a new fix.
	MaxAge time.Duration
}

// Fix is one position sample.
type Fix struct {
	Position   geo.LatLng `json:"position"`
	AccuracyM  float64    `json:"accuracy_m,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
}

// Source yields position fixes.
type Source interface {
	Current(ctx context.Context, opts Options) (Fix, error)
}

// ReportedSource is fed by the device, which pushes fixes (or a denial) to the
// service. Current returns a cached fix when it is young enough, otherwise it
// waits for the next report until the timeout.
type ReportedSource struct {
	mu      sync.Mutex
	last    *Fix
	denied  bool
	waiters []chan Fix
	request func()
	now     func() time.Time
}

// NewReportedSource creates an empty source.
func NewReportedSource() *ReportedSource {
	return &ReportedSource{now: time.Now}
}

// OnRequest sets a hook called whenever a reader starts waiting for a new fix,
// so the device can be asked for one.
func (s *ReportedSource) OnRequest(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = hook
}

// Report records a fix from the device and wakes pending readers.
func (s *ReportedSource) Report(pos geo.LatLng, accuracyM float64) Fix {
	s.mu.Lock()
	defer s.mu.Unlock()

	fix := Fix{Position: pos, AccuracyM: accuracyM, ReceivedAt: s.now()}
	s.last = &fix
	s.denied = false
	for _, w := range s.waiters {
		w <- fix
	}
	s.waiters = nil
	return fix
}

// Deny records that the user refused location access.
func (s *ReportedSource) Deny() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = true
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// Last returns the most recent fix regardless of age.
func (s *ReportedSource) Last() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Fix{}, false
	}
	return *s.last, true
}

// Current implements Source.
func (s *ReportedSource) Current(ctx context.Context, opts Options) (Fix, error) {
	s.mu.Lock()
	if s.denied {
		s.mu.Unlock()
		return Fix{}, ErrPermissionDenied
	}
	if s.last != nil && opts.MaxAge > 0 && s.now().Sub(s.last.ReceivedAt) <= opts.MaxAge {
		fix := *s.last
		s.mu.Unlock()
		return fix, nil
	}
	if opts.Timeout <= 0 {
		s.mu.Unlock()
		return Fix{}, ErrUnavailable
	}
	wait := make(chan Fix, 1)
	s.waiters = append(s.waiters, wait)
	request := s.request
	s.mu.Unlock()

	if request != nil {
		request()
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case fix, ok := <-wait:
		if !ok {
			return Fix{}, ErrPermissionDenied
		}
		return fix, nil
	case <-timer.C:
		s.dropWaiter(wait)
		return Fix{}, ErrTimeout
	case <-ctx.Done():
		s.dropWaiter(wait)
		return Fix{}, ctx.Err()
	}
}

func (s *ReportedSource) dropWaiter(w chan Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.waiters {
		if o == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Unsupported is a Source for clients without location capability.
type Unsupported struct{}

// Current implements Source.
func (Unsupported) Current(context.Context, Options) (Fix, error) {
	return Fix{}, ErrUnsupported
}
