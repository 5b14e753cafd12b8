package service

import (
	"container/list"
	"sync"
	"time"
)

type Config struct {
	StaleTTL time.Duration // общий потолок возраста записи
	MaxItems int
}

type entry struct {
	key       string
	value     any
	writtenAt time.Time
}

// Store двухуровневый TTL кэш. Один мьютекс на весь стор, сеть под ним никогда не ходит.
type Store struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = давно не трогали

	staleTTL time.Duration
	maxItems int
	now      func() time.Time
}

type Stats struct {
	Entries         int     `json:"entries"`
	MaxEntries      int     `json:"maxEntries"`
	StaleTTLSeconds float64 `json:"staleTtlSeconds"`
}

func NewStore(cfg Config) *Store {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 256
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = 60 * time.Second
	}
	return &Store{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		staleTTL: cfg.StaleTTL,
		maxItems: cfg.MaxItems,
		now:      time.Now,
	}
}

// WithClock подменяет часы, нужно тестам.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get отдаёт значение, только если ему меньше freshTTL.
func (s *Store) Get(key string, freshTTL time.Duration) (any, bool) {
	v, ok := s.lookup(key, freshTTL)
	if ok {
		cacheReads.WithLabelValues("fresh").Inc()
	} else {
		cacheReads.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// GetStale отдаёт значение моложе maxAge. maxAge <= 0 => общий stale TTL.
func (s *Store) GetStale(key string, maxAge time.Duration) (any, bool) {
	if maxAge <= 0 {
		maxAge = s.staleTTL
	}
	v, ok := s.lookup(key, maxAge)
	if ok {
		cacheReads.WithLabelValues("stale").Inc()
	}
	return v, ok
}

// Set всегда перезаписывает и делает запись самой свежей. Возвращает value.
func (s *Store) Set(key string, value any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.writtenAt = now
		s.order.MoveToBack(el)
	} else {
		s.items[key] = s.order.PushBack(&entry{key: key, value: value, writtenAt: now})
	}
	s.prune(now)

	return value
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Stats() Stats {
	return Stats{
		Entries:         s.Len(),
		MaxEntries:      s.maxItems,
		StaleTTLSeconds: s.staleTTL.Seconds(),
	}
}

func (s *Store) lookup(key string, maxAge time.Duration) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if now.Sub(e.writtenAt) >= maxAge {
		return nil, false
	}
	s.order.MoveToBack(el)
	return e.value, true
}

// prune выкидывает протухшее, потом режет по размеру с головы списка. Вызывать под mu.
func (s *Store) prune(now time.Time) {
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if e := el.Value.(*entry); now.Sub(e.writtenAt) >= s.staleTTL {
			s.remove(el)
			cacheEvictions.WithLabelValues("expired").Inc()
		}
		el = next
	}
	for len(s.items) > s.maxItems {
		s.remove(s.order.Front())
		cacheEvictions.WithLabelValues("capacity").Inc()
	}
	cacheEntries.Set(float64(len(s.items)))
}

func (s *Store) remove(el *list.Element) {
	e := s.order.Remove(el).(*entry)
	delete(s.items, e.key)
}

// Lookup типизированная обёртка над Get.
func Lookup[T any](s *Store, key string, freshTTL time.Duration) (T, bool) {
	var zero T
	v, ok := s.Get(key, freshTTL)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
