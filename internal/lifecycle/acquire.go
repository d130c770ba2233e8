package lifecycle

import (
	"context"
	"time"
)

// Acquire returns the instance registered under name, loading it on first use.
// Concurrent callers for the same cold component share a single load: the
// first caller runs the loader, the rest wait on the result. The wait for an
// in-flight load (or unload) is bounded by the manager's load-wait ceiling.
//
// The returned instance is shared, not copied, and remains owned by the
// manager: callers must not retain it beyond the current operation.
func (m *Manager) Acquire(ctx context.Context, name string) (any, error) {
	return m.acquire(ctx, name, false)
}

// Reload acquires name after discarding any loaded instance, forcing the
// loader to run again. The previous instance is released through its unloader.
func (m *Manager) Reload(ctx context.Context, name string) (any, error) {
	return m.acquire(ctx, name, true)
}

func (m *Manager) acquire(ctx context.Context, name string, force bool) (any, error) {
	// One ceiling for the whole call, however many transitions we wait out.
	ceiling := time.NewTimer(m.loadWait)
	defer ceiling.Stop()

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrManagerClosed()
		}
		c, ok := m.components[name]
		if !ok {
			m.mu.Unlock()
			return nil, ErrUnknownComponent(name)
		}

		// Using the component resets its idle clock: drop any pending
		// eviction timer and invalidate one that already fired but has not
		// taken the lock yet.
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.timerSeq++

		if c.transition != nil {
			// Someone else is loading or unloading; wait for the transition
			// to settle, then re-evaluate from scratch.
			wait := c.transition
			m.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ceiling.C:
				return nil, ErrLoadTimeout(name)
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.state == StateLoaded && !force {
			c.lastUsed = m.now()
			c.accessCount++
			inst := c.instance
			m.mu.Unlock()
			return inst, nil
		}

		// NotLoaded, Error, or a forced reload: this caller runs the loader.
		var stale any
		var staleUnloader func(any) error
		if c.state == StateLoaded {
			stale = c.instance
			staleUnloader = c.unloader
		}
		c.state = StateLoading
		c.instance = nil
		done := make(chan struct{})
		c.transition = done
		loader := c.loader
		m.mu.Unlock()

		if stale != nil {
			m.runUnloader(name, staleUnloader, stale)
			m.metrics.Evicted(name, ReasonReload)
		}

		m.metrics.LoadStarted(name)
		m.publisher.Publish(Event{Name: EventLoadStart, Component: name})
		start := m.now()
		inst, err := invokeLoader(loader)
		return m.finishLoad(c, done, inst, err, start)
	}
}

// invokeLoader runs the loader, converting a panic into an error so a buggy
// loader cannot wedge the component in the loading state.
func invokeLoader(loader func() (any, error)) (inst any, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, panicError{recovered: r}
		}
	}()
	return loader()
}

// finishLoad publishes the load result and wakes waiters. Returns what the
// leading Acquire call should return.
func (m *Manager) finishLoad(c *component, done chan struct{}, inst any, err error, start time.Time) (any, error) {
	name := c.name

	m.mu.Lock()
	replaced := m.components[name] != c
	closed := m.closed
	if err != nil {
		c.state = StateError
	} else if replaced || closed {
		// The descriptor was overwritten (or the manager shut down) while the
		// loader ran; the result has no home, release it.
		c.state = StateNotLoaded
	} else {
		c.instance = inst
		c.state = StateLoaded
		c.lastUsed = m.now()
		c.accessCount++
	}
	c.transition = nil
	close(done)
	resCount, resMB := m.residentLocked()
	m.mu.Unlock()

	if err != nil {
		m.metrics.LoadFailed(name)
		m.logger.Warn().Str("component", name).Err(err).Msg("component load failed")
		m.publisher.Publish(Event{Name: EventLoadFailed, Component: name, Fields: map[string]any{"error": err.Error()}})
		return nil, ErrLoadFailed(name, err)
	}
	if replaced || closed {
		m.runUnloader(name, c.unloader, inst)
		if closed {
			return nil, ErrManagerClosed()
		}
		return nil, ErrUnknownComponent(name)
	}
	m.metrics.LoadSucceeded(name, m.now().Sub(start))
	m.metrics.Resident(resCount, resMB)
	m.logger.Info().Str("component", name).Dur("dur", m.now().Sub(start)).Msg("component loaded")
	m.publisher.Publish(Event{Name: EventLoaded, Component: name, Fields: map[string]any{"dur_ms": int(m.now().Sub(start) / time.Millisecond)}})
	return inst, nil
}

// panicError wraps a recovered loader panic as an error.
type panicError struct{ recovered any }

func (e panicError) Error() string { return "loader panic: " + stringify(e.recovered) }

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return "non-string panic value"
	}
}

// residentLocked sums loaded components and their advisory memory estimates.
// Callers must hold m.mu.
func (m *Manager) residentLocked() (count, estMB int) {
	for _, c := range m.components {
		if c.state == StateLoaded {
			count++
			estMB += c.estMemoryMB
		}
	}
	return count, estMB
}
