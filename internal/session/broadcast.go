package session

import "context"

type subscriber struct {
	ch chan State
}

// Subscribe returns a channel that receives the current state immediately
// and then every change. A slow reader only sees the newest snapshot. The
// channel is closed when ctx is done or the manager is closed.
func (m *Manager) Subscribe(ctx context.Context) <-chan State {
	sub := &subscriber{ch: make(chan State, 1)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	m.subs[sub] = struct{}{}
	sub.ch <- m.state
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[sub]; ok {
			delete(m.subs, sub)
			close(sub.ch)
		}
	}()
	return sub.ch
}

// publishLocked hands the current state to every subscriber, replacing any
// snapshot it has not read yet. m.mu must be held.
func (m *Manager) publishLocked() {
	for sub := range m.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- m.state
	}
}
