package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"graphmind/backend/pkg/metrics"
)

// Service memoizes extraction results by content-addressed key.
// Keys collide only on identical content, so overwrites are safe and
// no locking beyond the store's own is needed.
type Service struct {
	enabled bool
	ttl     time.Duration
	store   *gocache.Cache
}

// New creates a cache service. A disabled service accepts all calls
// and always misses.
func New(enabled bool, ttl time.Duration) *Service {
	s := &Service{
		enabled: enabled,
		ttl:     ttl,
	}
	if enabled {
		s.store = gocache.New(ttl, 2*ttl)
	}
	return s
}

// Get returns the cached value for key, if present.
func (s *Service) Get(key string) (interface{}, bool) {
	if !s.enabled || s.store == nil {
		return nil, false
	}
	v, ok := s.store.Get(key)
	if ok {
		metrics.CacheHits.WithLabelValues("extraction").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("extraction").Inc()
	}
	return v, ok
}

// Set stores value under key with the given TTL; a zero ttl uses the
// service default.
func (s *Service) Set(key string, value interface{}, ttl time.Duration) {
	if !s.enabled || s.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.store.Set(key, value, ttl)
}
