package geoip

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
)

// DefaultTTL is how long a successful lookup stays cached.
const DefaultTTL = 24 * time.Hour

// DefaultTimeout bounds a single external lookup.
const DefaultTimeout = 2 * time.Second

// Lookup outcomes reported to a Recorder.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeFailure = "failure"
	OutcomeLocal   = "local"
)

// Lookuper is the external collaborator behind the cache.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (domain.IPGeolocation, error)
}

// Recorder receives lookup outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	GeoLookup(outcome string)
	GeoLookupDuration(seconds float64)
}

type entry struct {
	loc      domain.IPGeolocation
	cachedAt time.Time
}

// Resolver caches locations per IP. Lookup never fails: errors and timeouts
// degrade to domain.UnknownLocation and are not cached.
type Resolver struct {
	upstream Lookuper
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder

	mu    sync.RWMutex
	cache map[string]entry

	sf singleflight.Group
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithTTL sets the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithRecorder reports outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// NewResolver wraps upstream with a TTL cache.
func NewResolver(upstream Lookuper, opts ...Option) *Resolver {
	r := &Resolver{
		upstream: upstream,
		ttl:      DefaultTTL,
		timeout:  DefaultTimeout,
		now:      time.Now,
		logger:   slog.Default(),
		cache:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the location for ip from cache, or from upstream on a miss.
func (r *Resolver) Lookup(ctx context.Context, ip string) domain.IPGeolocation {
	if isLocal(ip) {
		r.record(OutcomeLocal)
		return domain.IPGeolocation{IP: ip, Country: "Local", City: "Local", Timezone: "UTC"}
	}

	if loc, ok := r.cached(ip); ok {
		r.record(OutcomeHit)
		return loc
	}
	r.record(OutcomeMiss)

	// The flight outlives any single caller, so it gets its own deadline.
	v, _, _ := r.sf.Do(ip, func() (any, error) {
		if loc, ok := r.cached(ip); ok {
			return loc, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		start := time.Now()
		loc, err := r.upstream.Lookup(lctx, ip)
		if r.recorder != nil {
			r.recorder.GeoLookupDuration(time.Since(start).Seconds())
		}
		if err != nil {
			r.record(OutcomeFailure)
			r.logger.WarnContext(ctx, "geolocation lookup failed", "ip", ip, "error", err)
			return domain.UnknownLocation(ip), nil
		}

		r.mu.Lock()
		r.cache[ip] = entry{loc: loc, cachedAt: r.now()}
		r.mu.Unlock()
		return loc, nil
	})

	return v.(domain.IPGeolocation)
}

func (r *Resolver) cached(ip string) (domain.IPGeolocation, bool) {
	r.mu.RLock()
	e, ok := r.cache[ip]
	r.mu.RUnlock()
	if !ok || r.now().Sub(e.cachedAt) >= r.ttl {
		return domain.IPGeolocation{}, false
	}
	return e.loc, true
}

// Purge drops expired entries and returns how many were removed.
func (r *Resolver) Purge() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for ip, e := range r.cache {
		if now.Sub(e.cachedAt) >= r.ttl {
			delete(r.cache, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, expired or not.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.GeoLookup(outcome)
	}
}

func isLocal(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
