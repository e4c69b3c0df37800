package rate

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Hit walks the key map for idle windows.
const sweepInterval = time.Minute

type window struct {
	mu    sync.Mutex
	times []time.Time
	span  time.Duration
	// dead windows have been removed from the map; a Hit holding one retries.
	dead bool
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.times[:0]
	for _, t := range w.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.times = kept
}

// MemoryStore keeps windows in process. Each key has its own mutex; the
// key map is a sync.Map so unrelated keys never contend. Windows whose
// attempts have all expired are evicted on a periodic sweep.
type MemoryStore struct {
	windows sync.Map // string -> *window

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, span time.Duration, limit int) (Result, error) {
	s.maybeSweep(now)

	for {
		v, _ := s.windows.LoadOrStore(key, &window{})
		w := v.(*window)

		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		res := w.hit(now, span, limit)
		w.mu.Unlock()
		return res, nil
	}
}

func (w *window) hit(now time.Time, span time.Duration, limit int) Result {
	w.span = span
	w.prune(now)

	res := Result{Count: len(w.times)}
	if res.Count < limit {
		w.times = append(w.times, now)
		res.Count++
		res.Allowed = true
	} else if len(w.times) > 0 {
		res.RetryAfter = w.times[0].Add(span).Sub(now)
	}
	res.Remaining = max(limit-res.Count, 0)
	return res
}

func (s *MemoryStore) maybeSweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < sweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	s.windows.Range(func(k, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		w.prune(now)
		if len(w.times) == 0 && !w.dead {
			w.dead = true
			s.windows.CompareAndDelete(k, w)
		}
		w.mu.Unlock()
		return true
	})
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	if v, ok := s.windows.LoadAndDelete(key); ok {
		w := v.(*window)
		w.mu.Lock()
		w.dead = true
		w.mu.Unlock()
	}
	return nil
}

// keys reports how many windows are held.
func (s *MemoryStore) keys() int {
	n := 0
	s.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
