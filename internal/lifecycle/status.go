package lifecycle

// ComponentStatus is a read-only projection of one component's descriptor.
type ComponentStatus struct {
	Name        string
	State       State
	IdleSeconds float64
	AccessCount uint64
	EstMemoryMB int
}

// Status returns a snapshot of every registered component. It takes the same
// lock as the mutating operations, so it never observes a torn descriptor,
// but loads and unloads run outside that lock, so Status never blocks behind
// a slow loader.
func (m *Manager) Status() map[string]ComponentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ComponentStatus, len(m.components))
	now := m.now()
	for name, c := range m.components {
		idle := 0.0
		if !c.lastUsed.IsZero() {
			idle = now.Sub(c.lastUsed).Seconds()
		}
		out[name] = ComponentStatus{
			Name:        name,
			State:       c.state,
			IdleSeconds: idle,
			AccessCount: c.accessCount,
			EstMemoryMB: c.estMemoryMB,
		}
	}
	return out
}
