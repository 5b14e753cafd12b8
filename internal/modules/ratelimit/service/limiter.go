package service

import (
	"sync"
	"time"
)

// UnknownClient ключ для запросов без адреса пира, лимит на них тоже действует.
const UnknownClient = "unknown"

type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Decision итог Admit. RetryAfter в секундах, >= 1 при отказе.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

type bucketKey struct {
	client string
	route  string
}

// Limiter скользящее окно на пару (клиент, маршрут).
type Limiter struct {
	mu      sync.Mutex
	buckets map[bucketKey][]time.Time

	window time.Duration
	max    int
	now    func() time.Time
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 1800
	}
	return &Limiter{
		buckets: make(map[bucketKey][]time.Time),
		window:  cfg.Window,
		max:     cfg.MaxRequests,
		now:     time.Now,
	}
}

func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) MaxRequests() int      { return l.max }

func (l *Limiter) Admit(clientKey, route string) Decision {
	if clientKey == "" {
		clientKey = UnknownClient
	}
	key := bucketKey{client: clientKey, route: route}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket := trim(l.buckets[key], now.Add(-l.window))

	if len(bucket) >= l.max {
		l.buckets[key] = bucket
		retry := int(bucket[0].Add(l.window).Sub(now) / time.Second)
		if retry < 1 {
			retry = 1
		}
		denied.WithLabelValues(route).Inc()
		return Decision{Allowed: false, RetryAfter: retry}
	}

	l.buckets[key] = append(bucket, now)
	return Decision{Allowed: true}
}

// Sweep удаляет корзины, в которых не осталось отметок внутри окна.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for key, bucket := range l.buckets {
		bucket = trim(bucket, cutoff)
		if len(bucket) == 0 {
			delete(l.buckets, key)
			removed++
			continue
		}
		l.buckets[key] = bucket
	}
	return removed
}

func (l *Limiter) Buckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// trim отбрасывает отметки старше cutoff, сами отметки отсортированы.
func trim(bucket []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(bucket) && bucket[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return bucket
	}
	// копируем, чтобы не держать хвост старого массива
	return append([]time.Time(nil), bucket[i:]...)
}
