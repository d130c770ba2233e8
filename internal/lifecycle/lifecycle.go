package lifecycle

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a registered component.
type State string

const (
	StateNotLoaded State = "not_loaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateUnloading State = "unloading"
	StateError     State = "error"
)

// Component describes a resource to register: how to construct it, how to
// release it, and an advisory memory estimate used only for reporting.
type Component struct {
	// Loader constructs the instance. Called at most once per load, never
	// while the manager lock is held.
	Loader func() (any, error)
	// Unloader releases the instance. Optional; errors and panics are logged
	// and swallowed so eviction always frees the slot.
	Unloader func(any) error
	// EstMemoryMB is an advisory cost for status reporting. Not enforced.
	EstMemoryMB int
}

// component is the per-name descriptor. All fields are guarded by Manager.mu
// except loader/unloader invocations, which run outside the lock.
type component struct {
	name        string
	loader      func() (any, error)
	unloader    func(any) error
	estMemoryMB int

	state       State
	instance    any
	lastUsed    time.Time
	accessCount uint64

	// transition is non-nil while state is Loading or Unloading and is closed
	// when the transition completes. Waiters block on it instead of polling.
	transition chan struct{}

	// timer is the pending idle-eviction timer; timerSeq identifies the most
	// recent ScheduleEviction call so superseded timers no-op at fire time.
	timer    *time.Timer
	timerSeq uint64
}

// Manager owns the registered components and their eviction timers.
// All operations are safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	components map[string]*component
	closed     bool

	loadWait  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
	publisher EventPublisher
	metrics   Metrics
}

// Defaults applied when corresponding Config fields are unset.
const (
	// defaultLoadWait bounds how long an Acquire waits for another caller's
	// in-flight load before giving up with a load timeout.
	defaultLoadWait = 30 * time.Second
	// DefaultIdleTimeout is the conventional idle period collaborators pass
	// to ScheduleEviction when they have no better number.
	DefaultIdleTimeout = 60 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// LoadWait bounds the wait for another caller's in-flight load.
	LoadWait time.Duration
	// Logger receives lifecycle events. Silent by default.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events for subscribers (e.g. a websocket
	// feed). Defaults to a no-op publisher.
	Publisher EventPublisher
	// Metrics receives load/evict observations. Defaults to NoopMetrics.
	Metrics Metrics
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New constructs a Manager with defaults.
func New() *Manager { return NewWithConfig(Config{}) }

// NewWithConfig constructs a Manager from Config.
func NewWithConfig(cfg Config) *Manager {
	m := &Manager{
		components: make(map[string]*component),
		loadWait:   cfg.LoadWait,
		now:        cfg.Now,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
	}
	if m.loadWait <= 0 {
		m.loadWait = defaultLoadWait
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.Logger != nil {
		m.logger = *cfg.Logger
	} else {
		m.logger = zerolog.Nop()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.metrics == nil {
		m.metrics = NoopMetrics{}
	}
	return m
}

// Register installs a component under name. Registering an existing name
// replaces the descriptor entirely: state resets to not_loaded, counters
// reset, any pending eviction timer is cancelled. The previous instance, if
// loaded, is released through its unloader first.
func (m *Manager) Register(name string, c Component) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	prev := m.components[name]
	var prevInstance any
	var prevUnloader func(any) error
	if prev != nil {
		if prev.timer != nil {
			prev.timer.Stop()
			prev.timer = nil
		}
		if prev.state == StateLoaded {
			prevInstance = prev.instance
			prevUnloader = prev.unloader
		}
	}
	m.components[name] = &component{
		name:        name,
		loader:      c.Loader,
		unloader:    c.Unloader,
		estMemoryMB: c.EstMemoryMB,
		state:       StateNotLoaded,
	}
	m.mu.Unlock()

	if prevInstance != nil {
		m.runUnloader(name, prevUnloader, prevInstance)
	}
	m.logger.Debug().Str("component", name).Int("est_memory_mb", c.EstMemoryMB).Msg("component registered")
	m.publisher.Publish(Event{Name: EventRegistered, Component: name, Fields: map[string]any{"est_memory_mb": c.EstMemoryMB}})
}

// Registered reports whether name has been registered.
func (m *Manager) Registered(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.components[name]
	return ok
}
