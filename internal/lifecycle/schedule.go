package lifecycle

import "time"

// ScheduleEviction arms a one-shot idle check for name that fires after idle.
// Scheduling again before the timer fires cancels and replaces the previous
// timer: only the most recent schedule call has effect. The check runs off
// the caller's goroutine and evicts the component only if it is still loaded
// and has genuinely been idle for the full period at fire time, so a stale
// timer can never evict an instance that was re-acquired (or reloaded) in the
// meantime.
func (m *Manager) ScheduleEviction(name string, idle time.Duration) error {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed()
	}
	c, ok := m.components[name]
	if !ok {
		return ErrUnknownComponent(name)
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerSeq++
	seq := c.timerSeq
	c.timer = time.AfterFunc(idle, func() { m.evictIfIdle(name, seq, idle) })
	return nil
}

// evictIfIdle is the deferred check behind ScheduleEviction. seq identifies
// the schedule call that armed this timer; a mismatch means the timer was
// superseded or invalidated by a later Acquire and must do nothing.
func (m *Manager) evictIfIdle(name string, seq uint64, idle time.Duration) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	c, ok := m.components[name]
	if !ok || c.timerSeq != seq {
		m.mu.Unlock()
		return
	}
	c.timer = nil
	if c.state != StateLoaded || m.now().Sub(c.lastUsed) < idle {
		m.mu.Unlock()
		return
	}
	m.logger.Debug().Str("component", name).Dur("idle", m.now().Sub(c.lastUsed)).Msg("idle timeout reached")
	m.evictHeld(c, ReasonIdle)
}
