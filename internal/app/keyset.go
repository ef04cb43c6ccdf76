package app

import "sync"

// keySet is the run-wide set of detail keys already fetched or in flight.
type keySet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newKeySet(initial map[string]struct{}) *keySet {
	keys := make(map[string]struct{}, len(initial))
	for k := range initial {
		keys[k] = struct{}{}
	}
	return &keySet{keys: keys}
}

// claim adds k and reports whether it was absent.
func (s *keySet) claim(k string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// release forgets k so a later task may fetch it again.
func (s *keySet) release(k string) {
	s.mu.Lock()
	delete(s.keys, k)
	s.mu.Unlock()
}
