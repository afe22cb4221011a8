package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	sessionID string
	msgType   string
	payload   interface{}
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	onNotify func(sessionID, msgType string)
}

func (n *fakeNotifier) Notify(sessionID, msgType string, payload interface{}) {
	n.mu.Lock()
	n.messages = append(n.messages, sentMessage{sessionID: sessionID, msgType: msgType, payload: payload})
	hook := n.onNotify
	n.mu.Unlock()
	if hook != nil {
		hook(sessionID, msgType)
	}
}

func (n *fakeNotifier) setHook(hook func(sessionID, msgType string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onNotify = hook
}

func (n *fakeNotifier) notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notice
	for _, m := range n.messages {
		if notice, ok := m.payload.(Notice); ok && m.msgType == MessageNotice {
			out = append(out, notice)
		}
	}
	return out
}

func (n *fakeNotifier) count(msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, m := range n.messages {
		if m.msgType == msgType {
			total++
		}
	}
	return total
}

func (n *fakeNotifier) hasNotice(title string) bool {
	for _, notice := range n.notices() {
		if notice.Title == title {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *fakeOpener) Open(_ context.Context, _ string, u string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, u)
	return nil
}

func (o *fakeOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

type fakeTraffic struct {
	mu     sync.Mutex
	calls  int
	update *route.TrafficUpdate
	err    error
}

func (f *fakeTraffic) CheckTraffic(_ context.Context, _ route.Document) (*route.TrafficUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.update, f.err
}

func (f *fakeTraffic) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memorySavedRoutes struct {
	mu     sync.Mutex
	routes map[uuid.UUID]*route.SavedRoute
}

func newMemorySavedRoutes() *memorySavedRoutes {
	return &memorySavedRoutes{routes: make(map[uuid.UUID]*route.SavedRoute)}
}

func (m *memorySavedRoutes) FindByID(_ context.Context, id uuid.UUID) (*route.SavedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, domain.NewNotFoundError("SavedRoute", id.String())
	}
	return r, nil
}

func (m *memorySavedRoutes) List(_ context.Context, page, limit int) ([]*route.SavedRoute, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*route.SavedRoute
	for _, r := range m.routes {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *memorySavedRoutes) Save(_ context.Context, r *route.SavedRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.ID()] = r
	return nil
}

func (m *memorySavedRoutes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, id)
	return nil
}

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]session.Snapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: make(map[string]session.Snapshot)}
}

func (m *memorySnapshots) Save(_ context.Context, snap *session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.SessionID] = *snap
	return nil
}

func (m *memorySnapshots) Find(_ context.Context, id string) (*session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, domain.NewNotFoundError("Session", id)
	}
	return &snap, nil
}

func (m *memorySnapshots) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

type harness struct {
	svc       *SessionService
	notifier  *fakeNotifier
	publisher *fakePublisher
	opener    *fakeOpener
	traffic   *fakeTraffic
}

// testOptions uses fast loops and keeps the traffic timer out of the way.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Timing.MonitorInterval = 10 * time.Millisecond
	opts.Timing.TrackingInterval = 10 * time.Millisecond
	opts.Timing.GeolocationTimeout = 50 * time.Millisecond
	opts.Timing.TrafficInitialDelay = time.Hour
	opts.Timing.TrafficInterval = time.Hour
	return opts
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		opener:    &fakeOpener{},
		traffic:   &fakeTraffic{},
	}
	h.svc = NewSessionService(nil, h.traffic, h.notifier, h.opener, h.publisher, opts, zap.NewNop())
	t.Cleanup(h.svc.Close)
	return h
}

func (h *harness) newSession(t *testing.T) string {
	t.Helper()
	dto, err := h.svc.CreateSession(context.Background())
	require.NoError(t, err)
	return dto.ID
}

// lineDocument builds a route of n stops about 0.7 km apart along a parallel.
func lineDocument(n int) route.Document {
	doc := route.Document{}
	for i := 0; i < n; i++ {
		doc.Coordinates = append(doc.Coordinates, []float64{4.0 + 0.01*float64(i), 52.0})
		doc.Addresses = append(doc.Addresses, "Stop "+string(rune('A'+i)))
	}
	return doc
}
