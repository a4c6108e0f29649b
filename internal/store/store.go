// Package store persists cache entries in SQLite so translations survive
// process restarts. It satisfies cache.Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valpere/adaptran/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS translation_cache (
		fingerprint TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		optimization_level TEXT NOT NULL,
		translation TEXT NOT NULL,
		overall_score REAL NOT NULL DEFAULT 0,
		quality_json TEXT NOT NULL,
		chunking_json TEXT NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		hit_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_used INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_lookup ON translation_cache(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_cache_last_used ON translation_cache(last_used);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Name identifies the store in cache statistics.
func (s *Store) Name() string {
	return "sqlite"
}

// Load returns the entry stored under key, or nil when there is none.
func (s *Store) Load(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	return loadEntry(ctx, s.db, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadEntry(ctx context.Context, q queryer, key internal.CacheKey) (*internal.CacheEntry, error) {
	var (
		e                         internal.CacheEntry
		level                     string
		qualityJSON, chunkingJSON string
		createdAt                 int64
	)

	err := q.QueryRowContext(ctx,
		`SELECT source_text, source_lang, target_lang, optimization_level, translation, quality_json, chunking_json, access_count, hit_count, created_at
		 FROM translation_cache WHERE fingerprint = ?`,
		key.Fingerprint()).Scan(
		&e.Key.Text, &e.Key.SourceLang, &e.Key.TargetLang, &level,
		&e.Translation, &qualityJSON, &chunkingJSON,
		&e.AccessCount, &e.HitCount, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}

	e.Key.OptimizationLevel = internal.OptimizationLevel(level)
	e.CreatedAt = time.Unix(0, createdAt)
	if err := json.Unmarshal([]byte(qualityJSON), &e.QualityMetrics); err != nil {
		return nil, fmt.Errorf("decode quality metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(chunkingJSON), &e.ChunkingResult); err != nil {
		return nil, fmt.Errorf("decode chunking result: %w", err)
	}

	return &e, nil
}

// Save upserts entry under its key.
func (s *Store) Save(ctx context.Context, entry *internal.CacheEntry) error {
	qualityJSON, err := json.Marshal(entry.QualityMetrics)
	if err != nil {
		return fmt.Errorf("encode quality metrics: %w", err)
	}
	chunkingJSON, err := json.Marshal(entry.ChunkingResult)
	if err != nil {
		return fmt.Errorf("encode chunking result: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO translation_cache (fingerprint, source_text, source_lang, target_lang, optimization_level, translation, overall_score, quality_json, chunking_json, access_count, hit_count, created_at, last_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			translation = excluded.translation,
			overall_score = excluded.overall_score,
			quality_json = excluded.quality_json,
			chunking_json = excluded.chunking_json,
			access_count = excluded.access_count,
			hit_count = excluded.hit_count,
			created_at = excluded.created_at,
			last_used = excluded.last_used`,
		entry.Key.Fingerprint(), entry.Key.Text, entry.Key.SourceLang, entry.Key.TargetLang, string(entry.Key.OptimizationLevel),
		entry.Translation, entry.QualityMetrics.OverallScore, string(qualityJSON), string(chunkingJSON),
		entry.AccessCount, entry.HitCount, createdAt.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

// RecordHit bumps the counters of the entry stored under key and returns it.
// A missing entry is left missing and reported as nil.
func (s *Store) RecordHit(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("record cache hit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE translation_cache
		 SET access_count = access_count + 1, hit_count = hit_count + 1, last_used = ?
		 WHERE fingerprint = ?`,
		time.Now().UnixNano(), key.Fingerprint())
	if err != nil {
		return nil, fmt.Errorf("record cache hit: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}

	entry, err := loadEntry(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("record cache hit: %w", err)
	}
	return entry, nil
}

// Delete removes the entry stored under key; a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, key internal.CacheKey) error {
	return s.DeleteByFingerprint(ctx, key.Fingerprint())
}

// DeleteByFingerprint removes an entry by its storage key, as shown by List.
func (s *Store) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE fingerprint = ?`, fingerprint)
	return err
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache`).Scan(&n)
	return n, err
}

// Entry is a row summary from the translation_cache table.
type Entry struct {
	Fingerprint       string
	SourceText        string
	SourceLang        string
	TargetLang        string
	OptimizationLevel internal.OptimizationLevel
	Translation       string
	OverallScore      float64
	HitCount          int64
	LastUsed          time.Time
}

// CacheStats summarises cache table usage.
type CacheStats struct {
	TotalEntries     int
	SemanticEntries  int
	OptimizedEntries int
	TotalHits        int64
	AverageScore     float64
}

// Clear removes all cache entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns all cache entries ordered by most recently used.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, source_text, source_lang, target_lang, optimization_level, translation, overall_score, hit_count, last_used
		 FROM translation_cache ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var (
			e        Entry
			level    string
			lastUsed int64
		)
		if err := rows.Scan(&e.Fingerprint, &e.SourceText, &e.SourceLang, &e.TargetLang, &level, &e.Translation, &e.OverallScore, &e.HitCount, &lastUsed); err != nil {
			return nil, err
		}
		e.OptimizationLevel = internal.OptimizationLevel(level)
		e.LastUsed = time.Unix(0, lastUsed)
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the cache table.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN optimization_level = 'semantic' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN optimization_level = 'optimized' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hit_count), 0),
			COALESCE(AVG(overall_score), 0)
		FROM translation_cache`).Scan(
		&stats.TotalEntries,
		&stats.SemanticEntries,
		&stats.OptimizedEntries,
		&stats.TotalHits,
		&stats.AverageScore,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
