package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersCreated     uint64
	ResourcesCreated map[string]uint64
	ResourcesUpdated map[string]uint64
	ResourcesDeleted map[string]uint64
	GateRejections   map[string]uint64
	RateLimited      uint64
	Requests         uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersCreated uint64
	rateLimited  uint64
	requests     uint64

	mu      sync.Mutex
	created map[string]uint64
	updated map[string]uint64
	deleted map[string]uint64
	gate    map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		created: make(map[string]uint64),
		updated: make(map[string]uint64),
		deleted: make(map[string]uint64),
		gate:    make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		UsersCreated:     atomic.LoadUint64(&m.usersCreated),
		ResourcesCreated: copyCounts(m.created),
		ResourcesUpdated: copyCounts(m.updated),
		ResourcesDeleted: copyCounts(m.deleted),
		GateRejections:   copyCounts(m.gate),
		RateLimited:      atomic.LoadUint64(&m.rateLimited),
		Requests:         atomic.LoadUint64(&m.requests),
	}
}

// IncUserCreated increments the user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncResourceCreated increments the created counter for kind.
func (m *InMemoryRecorder) IncResourceCreated(kind string) {
	m.inc(m.created, kind)
}

// IncResourceUpdated increments the updated counter for kind.
func (m *InMemoryRecorder) IncResourceUpdated(kind string) {
	m.inc(m.updated, kind)
}

// IncResourceDeleted increments the deleted counter for kind.
func (m *InMemoryRecorder) IncResourceDeleted(kind string) {
	m.inc(m.deleted, kind)
}

// IncGateRejected increments the gate rejection counter for reason.
func (m *InMemoryRecorder) IncGateRejected(reason string) {
	m.inc(m.gate, reason)
}

// IncRateLimited increments the rate limited counter.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// ObserveRequest counts the request.
func (m *InMemoryRecorder) ObserveRequest(method string, status int, duration time.Duration) {
	atomic.AddUint64(&m.requests, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
