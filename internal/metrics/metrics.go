// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Gate rejection reasons.
const (
	ReasonMissingHeader = "missing_header"
	ReasonInvalidEmail  = "invalid_email"
)

// Recorder captures metric events for the application.
// kind is a resource kind name such as "field" or "device".
type Recorder interface {
	// Resource management metrics
	IncUserCreated()
	IncResourceCreated(kind string)
	IncResourceUpdated(kind string)
	IncResourceDeleted(kind string)

	// Access control metrics
	IncGateRejected(reason string)
	IncRateLimited()

	// HTTP metrics
	ObserveRequest(method string, status int, duration time.Duration)
}
