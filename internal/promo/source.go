package promo

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source resolves promo codes against the persisted rule table, refreshing a
// cached resolver on a fixed interval. A failed refresh logs and keeps the
// last known table (or the seed defaults) so checkout never hard-fails on a
// promo lookup: an unresolvable code is simply worth nothing.
type Source struct {
	Store *Store
	TTL   time.Duration
	Log   zerolog.Logger

	mu       sync.Mutex
	resolver *Resolver
	expires  time.Time
}

func (s *Source) refreshLocked(ctx context.Context) {
	resolver, err := s.Store.Resolver(ctx)
	if err != nil {
		s.Log.Warn().Err(err).Msg("refresh promo rules")
		if s.resolver == nil {
			s.resolver = NewResolver(DefaultRules())
		}
	} else {
		s.resolver = resolver
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	s.expires = time.Now().Add(ttl)
}

// Resolve returns the discount rate in basis points for the code, 0 when the
// code is unknown or inactive.
func (s *Source) Resolve(ctx context.Context, code string) int32 {
	if s == nil || s.Store == nil {
		return 0
	}
	s.mu.Lock()
	if s.resolver == nil || time.Now().After(s.expires) {
		s.refreshLocked(ctx)
	}
	resolver := s.resolver
	s.mu.Unlock()
	return resolver.Resolve(code)
}
