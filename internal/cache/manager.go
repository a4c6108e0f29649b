// Package cache keeps prior translation results keyed by request fingerprint
// and achieved optimization level.
//
// Replacement policy: storing an optimized entry removes the semantic entry
// for the same (text, source, target); storing a semantic entry leaves any
// optimized entry alone. Exact-key lookups are always served. Upserts under
// an identical key are last-write-wins.
package cache

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal"
)

// Store is the persistence behind a Manager. Load returns nil, nil on a
// miss. Implementations must give read-after-write consistency per key.
//
// Save writes a fresh entry and starts its lifetime over. RecordHit bumps
// AccessCount and HitCount of the entry currently stored under key and
// returns it; it never creates an entry, and returns nil, nil when there is
// none.
type Store interface {
	Name() string
	Load(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error)
	Save(ctx context.Context, entry *internal.CacheEntry) error
	RecordHit(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error)
	Delete(ctx context.Context, key internal.CacheKey) error
	Len(ctx context.Context) (int, error)
}

// Stats is a point-in-time snapshot. Entries is -1 when the store could not
// be counted.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Stores       int64   `json:"stores"`
	Replacements int64   `json:"replacements"`
	Errors       int64   `json:"errors"`
	Entries      int     `json:"entries"`
	HitRate      float64 `json:"hit_rate"`
	Backend      string  `json:"backend"`
}

type Manager struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	hits         atomic.Int64
	misses       atomic.Int64
	stores       atomic.Int64
	replacements atomic.Int64
	errors       atomic.Int64
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetTranslation returns the entry for the exact key, or nil on a miss. Store
// failures are logged and reported as misses; the only error returned is a
// done context. A hit increments AccessCount and HitCount in the store.
func (m *Manager) GetTranslation(ctx context.Context, text, sourceLang, targetLang string, level internal.OptimizationLevel) (*internal.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := internal.CacheKey{Text: text, SourceLang: sourceLang, TargetLang: targetLang, OptimizationLevel: level}
	hit, err := m.store.RecordHit(ctx, key)
	if err != nil {
		m.errors.Add(1)
		m.misses.Add(1)
		m.logger.Warn().Err(err).Str("level", string(level)).Msg("cache load failed, treating as miss")
		return nil, nil
	}
	if hit == nil {
		m.misses.Add(1)
		m.logger.Debug().Str("level", string(level)).Msg("cache miss")
		return nil, nil
	}

	m.hits.Add(1)
	m.logger.Debug().Str("level", string(level)).Int64("hit_count", hit.HitCount).Msg("cache hit")
	return hit, nil
}

// StoreTranslation upserts a result under (text, sourceLang, targetLang,
// level) and applies the replacement policy.
func (m *Manager) StoreTranslation(ctx context.Context, text, translation, sourceLang, targetLang string, level internal.OptimizationLevel, metrics internal.QualityMetrics, chunking internal.ChunkingResult) error {
	entry := &internal.CacheEntry{
		Key: internal.CacheKey{
			Text:              text,
			SourceLang:        sourceLang,
			TargetLang:        targetLang,
			OptimizationLevel: level,
		},
		Translation:    translation,
		QualityMetrics: metrics,
		ChunkingResult: chunking,
		CreatedAt:      m.now(),
	}

	if err := m.store.Save(ctx, entry); err != nil {
		m.errors.Add(1)
		m.logger.Warn().Err(err).Str("level", string(level)).Msg("cache store failed")
		return err
	}
	m.stores.Add(1)

	if level != internal.LevelOptimized {
		return nil
	}

	weaker := entry.Key
	weaker.OptimizationLevel = internal.LevelSemantic
	existing, err := m.store.Load(ctx, weaker)
	if err != nil {
		m.errors.Add(1)
		m.logger.Warn().Err(err).Msg("cache replacement lookup failed")
		return nil
	}
	if existing == nil {
		return nil
	}
	if err := m.store.Delete(ctx, weaker); err != nil {
		m.errors.Add(1)
		m.logger.Warn().Err(err).Msg("cache replacement delete failed")
		return nil
	}
	m.replacements.Add(1)
	return nil
}

func (m *Manager) Statistics(ctx context.Context) Stats {
	s := Stats{
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Stores:       m.stores.Load(),
		Replacements: m.replacements.Load(),
		Errors:       m.errors.Load(),
		Backend:      m.store.Name(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	n, err := m.store.Len(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("cache size unavailable")
		n = -1
	}
	s.Entries = n
	return s
}

// Close releases the store when it holds resources.
func (m *Manager) Close() error {
	if c, ok := m.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
