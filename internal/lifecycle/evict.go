package lifecycle

import (
	"fmt"
	"runtime"
)

// Evict releases the instance registered under name immediately. It is a
// no-op (not an error) when the component is not currently loaded. Unloader
// failures are logged and swallowed: eviction always leaves the component in
// the not-loaded state.
func (m *Manager) Evict(name string) error {
	m.mu.Lock()
	c, ok := m.components[name]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownComponent(name)
	}
	m.evictHeld(c, ReasonExplicit)
	return nil
}

// EvictAll releases every loaded component and cancels every pending eviction
// timer. Order is unspecified; components are independent. Idempotent and
// intended for shutdown.
func (m *Manager) EvictAll() {
	m.mu.Lock()
	comps := make([]*component, 0, len(m.components))
	for _, c := range m.components {
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.timerSeq++
		comps = append(comps, c)
	}
	m.mu.Unlock()

	for _, c := range comps {
		m.mu.Lock()
		m.evictHeld(c, ReasonShutdown)
	}
}

// Close marks the manager closed, then evicts everything. Any eviction timer
// that fires afterwards is a safe no-op, and further operations fail with a
// manager-closed error.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.EvictAll()
}

// evictHeld evicts c if it is loaded. Called with m.mu held; returns with the
// lock released. The unloader runs outside the lock so one component's slow
// destructor never blocks operations on other components.
func (m *Manager) evictHeld(c *component, reason EvictReason) {
	if c.state != StateLoaded {
		m.mu.Unlock()
		return
	}
	inst := c.instance
	unloader := c.unloader
	c.state = StateUnloading
	c.instance = nil
	done := make(chan struct{})
	c.transition = done
	m.mu.Unlock()

	m.runUnloader(c.name, unloader, inst)

	m.mu.Lock()
	c.state = StateNotLoaded
	c.transition = nil
	close(done)
	resCount, resMB := m.residentLocked()
	m.mu.Unlock()

	m.metrics.Evicted(c.name, reason)
	m.metrics.Resident(resCount, resMB)
	m.logger.Info().Str("component", c.name).Str("reason", string(reason)).Msg("component evicted")
	m.publisher.Publish(Event{Name: EventEvicted, Component: c.name, Fields: map[string]any{"reason": string(reason)}})

	// Dropping a multi-gigabyte instance is worth a collection hint.
	runtime.GC()
}

// runUnloader invokes an unloader, swallowing errors and panics. A buggy
// destructor must not prevent the slot from being freed.
func (m *Manager) runUnloader(name string, unloader func(any) error, inst any) {
	if unloader == nil || inst == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("component", name).Str("panic", fmt.Sprint(r)).Msg("unloader panicked")
		}
	}()
	if err := unloader(inst); err != nil {
		m.logger.Warn().Str("component", name).Err(err).Msg("unloader failed")
	}
}
