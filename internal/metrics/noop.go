package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncResourceCreated is a no-op.
func (n *NoopRecorder) IncResourceCreated(kind string) {}

// IncResourceUpdated is a no-op.
func (n *NoopRecorder) IncResourceUpdated(kind string) {}

// IncResourceDeleted is a no-op.
func (n *NoopRecorder) IncResourceDeleted(kind string) {}

// IncGateRejected is a no-op.
func (n *NoopRecorder) IncGateRejected(reason string) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited() {}

// ObserveRequest is a no-op.
func (n *NoopRecorder) ObserveRequest(method string, status int, duration time.Duration) {}
