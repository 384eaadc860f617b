package flows

import "sync"

// Scratch is the page-scoped transient store. Its contents do not survive
// a restart.
type Scratch interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

type MemoryScratch struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryScratch() *MemoryScratch {
	return &MemoryScratch{m: make(map[string]string)}
}

func (s *MemoryScratch) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryScratch) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *MemoryScratch) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}
