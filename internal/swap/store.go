package swap

import "sync"

// Store owns the swap State. All writers go through Dispatch; readers take
// a Snapshot or Subscribe.
type Store struct {
	mu    sync.Mutex
	state State

	// notifyMu serialises dispatches so observers see states in order.
	notifyMu sync.Mutex
	subs     map[int]func(State)
	nextSub  int
}

func NewStore(initial State) *Store {
	return &Store{state: initial, subs: make(map[int]func(State))}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces e into the state and notifies subscribers when it applied.
// Subscribers run synchronously and must not call Dispatch themselves.
func (s *Store) Dispatch(e Event) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, e)
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if next.Revision == prev.Revision {
		return next
	}
	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn for every applied event. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
