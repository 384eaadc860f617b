package cookies

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is a process-local cookie jar with the same expiry rules
// as RedisRepository.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]record
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]record), now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) GetMany(_ context.Context, names []string) (map[string]*http.Cookie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	out := make(map[string]*http.Cookie, len(names))
	for _, n := range names {
		if rec, ok := r.data[n]; ok && !rec.expired(now) {
			out[n] = rec.cookie()
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetMany(_ context.Context, cookies []*http.Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for _, c := range cookies {
		rec := toRecord(c)
		if rec.expired(now) {
			delete(r.data, c.Name)
			continue
		}
		r.data[c.Name] = rec
	}
	return nil
}

func (r *MemoryRepository) DeleteMany(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.data, n)
	}
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*http.Cookie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	var out []*http.Cookie
	for _, rec := range r.data {
		if !rec.expired(now) {
			out = append(out, rec.cookie())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
