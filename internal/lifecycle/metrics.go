package lifecycle

import "time"

// EvictReason explains why an instance was released.
type EvictReason string

const (
	ReasonIdle     EvictReason = "idle"
	ReasonExplicit EvictReason = "explicit"
	ReasonShutdown EvictReason = "shutdown"
	ReasonReload   EvictReason = "reload"
)

// Metrics receives lifecycle observations. Implementations must be safe for
// concurrent use and must not block.
type Metrics interface {
	LoadStarted(name string)
	LoadSucceeded(name string, dur time.Duration)
	LoadFailed(name string)
	Evicted(name string, reason EvictReason)
	// Resident reports how many components are loaded and their summed
	// advisory memory estimate in MB.
	Resident(count int, estMemoryMB int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) LoadStarted(string)                 {}
func (NoopMetrics) LoadSucceeded(string, time.Duration) {}
func (NoopMetrics) LoadFailed(string)                  {}
func (NoopMetrics) Evicted(string, EvictReason)        {}
func (NoopMetrics) Resident(int, int)                  {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
