// Package controller composes chunking, translation, quality assessment,
// chunk-size optimization and caching into one adaptive pipeline.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal"
	"github.com/valpere/adaptran/internal/cache"
	"github.com/valpere/adaptran/internal/chunker"
	"github.com/valpere/adaptran/internal/optimizer"
	"github.com/valpere/adaptran/internal/quality"
	"github.com/valpere/adaptran/internal/translator"
)

// ErrCallbackFailure wraps errors and panics raised by an UpdateFunc. It is
// only ever logged.
var ErrCallbackFailure = errors.New("progress callback failed")

// metaOptimizationAttempted marks cached metrics whose request already went
// through the optimizer.
const metaOptimizationAttempted = "optimization_attempted"

// Stage time keys in TranslationResult.StageTimes.
const (
	StageCacheLookup         = "cache_lookup"
	StageSemanticTranslation = "semantic_translation"
	StageQualityAssessment   = "quality_assessment"
	StageOptimization        = "optimization"
)

type Chunker interface {
	ChunkText(req internal.TranslationRequest) internal.ChunkingResult
}

type Assessor interface {
	AssessQuality(original, translated string, chunking *internal.ChunkingResult, opts ...quality.AssessOption) internal.QualityMetrics
}

type Optimizer interface {
	OptimizeTranslation(ctx context.Context, req internal.TranslationRequest, semantic *internal.TranslationResult, strategy optimizer.Strategy) (*internal.OptimizationResult, error)
}

// Cache is the subset of cache.Manager the controller uses.
type Cache interface {
	GetTranslation(ctx context.Context, text, sourceLang, targetLang string, level internal.OptimizationLevel) (*internal.CacheEntry, error)
	StoreTranslation(ctx context.Context, text, translation, sourceLang, targetLang string, level internal.OptimizationLevel, metrics internal.QualityMetrics, chunking internal.ChunkingResult) error
	Statistics(ctx context.Context) cache.Stats
}

// UpdateFunc receives progress updates from ProgressiveTranslate. Returned
// errors and panics are logged and otherwise ignored.
type UpdateFunc func(internal.TranslationUpdate) error

type Config struct {
	// QualityThreshold is the score below which balanced requests are
	// optimized and above which results are cached as optimized.
	QualityThreshold float64 `mapstructure:"quality_threshold"`
	// QualityPreferenceThreshold is the stricter bar for quality requests.
	QualityPreferenceThreshold float64 `mapstructure:"quality_preference_threshold"`
	ChunkConcurrency           int     `mapstructure:"chunk_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		QualityThreshold:           0.8,
		QualityPreferenceThreshold: 0.9,
		ChunkConcurrency:           4,
	}
}

// Stats is the snapshot returned by PerformanceStats. CacheStats is nil when
// no cache is configured.
type Stats struct {
	TotalRequests          int64        `json:"total_requests"`
	CacheHits              int64        `json:"cache_hits"`
	OptimizationsAttempted int64        `json:"optimizations_attempted"`
	OptimizationsApplied   int64        `json:"optimizations_applied"`
	OptimizationFailures   int64        `json:"optimization_failures"`
	BackendFailures        int64        `json:"backend_failures"`
	CacheStats             *cache.Stats `json:"cache_stats"`
	QualityThreshold       float64      `json:"quality_threshold"`
}

type Controller struct {
	backend   translator.Backend
	chunker   Chunker
	assessor  Assessor
	optimizer Optimizer
	cache     Cache
	cfg       Config
	logger    zerolog.Logger

	totalRequests          atomic.Int64
	cacheHits              atomic.Int64
	optimizationsAttempted atomic.Int64
	optimizationsApplied   atomic.Int64
	optimizationFailures   atomic.Int64
	backendFailures        atomic.Int64
}

type Option func(*Controller)

func WithChunker(ch Chunker) Option {
	return func(c *Controller) { c.chunker = ch }
}

func WithAssessor(a Assessor) Option {
	return func(c *Controller) { c.assessor = a }
}

func WithOptimizer(o Optimizer) Option {
	return func(c *Controller) { c.optimizer = o }
}

// WithCache enables result caching. Without it every request misses.
func WithCache(cc Cache) Option {
	return func(c *Controller) { c.cache = cc }
}

// WithConfig replaces the defaults. Zero fields keep their default value.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		def := DefaultConfig()
		if cfg.QualityThreshold <= 0 {
			cfg.QualityThreshold = def.QualityThreshold
		}
		if cfg.QualityPreferenceThreshold <= 0 {
			cfg.QualityPreferenceThreshold = def.QualityPreferenceThreshold
		}
		if cfg.ChunkConcurrency <= 0 {
			cfg.ChunkConcurrency = def.ChunkConcurrency
		}
		c.cfg = cfg
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New builds a Controller around backend. Components not supplied as options
// are built from their package defaults; the default optimizer re-chunks with
// the controller's chunker when it supports explicit sizes.
func New(backend translator.Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		cfg:     DefaultConfig(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunker == nil {
		c.chunker = chunker.New(chunker.DefaultConfig())
	}
	if c.assessor == nil {
		c.assessor = quality.NewEngine(quality.DefaultConfig())
	}
	if c.optimizer == nil {
		rc, ok := c.chunker.(optimizer.Rechunker)
		if !ok {
			rc = chunker.New(chunker.DefaultConfig())
		}
		cfg := optimizer.Config{Concurrency: c.cfg.ChunkConcurrency}
		if b, ok := rc.(interface{ Bounds() (int, int) }); ok {
			cfg.MinChunkSize, cfg.MaxChunkSize = b.Bounds()
		}
		c.optimizer = optimizer.New(backend, rc, c.assessor, cfg, c.logger)
	}
	return c
}

// Translate runs the adaptive pipeline for req. Only a backend failure in the
// semantic path is returned as an error; optimizer failures fall back to the
// semantic translation.
func (c *Controller) Translate(ctx context.Context, req internal.TranslationRequest) (*internal.TranslationResult, error) {
	return c.run(ctx, req, func(internal.TranslationUpdate) {})
}

// ProgressiveTranslate runs the same pipeline as Translate and reports every
// stage transition through fn. Progress never decreases within one call and
// stages only move forward. A failed optimization ends the sequence at
// StageOptimizing with progress 1.0 and the semantic translation.
func (c *Controller) ProgressiveTranslate(ctx context.Context, req internal.TranslationRequest, fn UpdateFunc) (*internal.TranslationResult, error) {
	if fn == nil {
		return c.Translate(ctx, req)
	}
	n := &notifier{fn: fn, logger: c.logger}
	return c.run(ctx, req, n.send)
}

// ShouldOptimize reports whether a translation scored by metrics deserves an
// optimization pass. force always wins; fast never optimizes on its own;
// quality uses the stricter QualityPreferenceThreshold.
func (c *Controller) ShouldOptimize(metrics internal.QualityMetrics, pref internal.UserPreference, force bool) bool {
	if force {
		return true
	}
	switch pref {
	case internal.PreferenceFast:
		return false
	case internal.PreferenceQuality:
		return metrics.OverallScore < c.cfg.QualityPreferenceThreshold
	default:
		return metrics.OverallScore < c.cfg.QualityThreshold
	}
}

func (c *Controller) PerformanceStats(ctx context.Context) Stats {
	s := Stats{
		TotalRequests:          c.totalRequests.Load(),
		CacheHits:              c.cacheHits.Load(),
		OptimizationsAttempted: c.optimizationsAttempted.Load(),
		OptimizationsApplied:   c.optimizationsApplied.Load(),
		OptimizationFailures:   c.optimizationFailures.Load(),
		BackendFailures:        c.backendFailures.Load(),
		QualityThreshold:       c.cfg.QualityThreshold,
	}
	if c.cache != nil {
		cs := c.cache.Statistics(ctx)
		s.CacheStats = &cs
	}
	return s
}

func (c *Controller) run(ctx context.Context, req internal.TranslationRequest, notify func(internal.TranslationUpdate)) (*internal.TranslationResult, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := c.logger.With().Str("request_id", requestID).Logger()
	c.totalRequests.Add(1)

	stageTimes := make(map[string]time.Duration)

	if c.cache != nil {
		t := time.Now()
		entry := c.lookup(ctx, req, logger)
		stageTimes[StageCacheLookup] = time.Since(t)
		if entry != nil {
			c.cacheHits.Add(1)
			res := resultFromEntry(req, entry, stageTimes, requestID)
			res.ProcessingTime = time.Since(start)
			translation := res.Translation
			notify(internal.TranslationUpdate{
				Stage:          internal.StageSemantic,
				Translation:    &translation,
				QualityMetrics: &entry.QualityMetrics,
				Progress:       1.0,
				StatusMessage:  "served from cache",
				Metadata:       map[string]any{"cache_hit": true},
			})
			return res, nil
		}
	}

	notify(internal.TranslationUpdate{Stage: internal.StageSemantic, Progress: 0.1, StatusMessage: "chunking"})

	t := time.Now()
	chunking := c.chunker.ChunkText(req)
	parts, err := translator.TranslateChunks(ctx, c.backend, chunking.Chunks, req.SourceLang, req.TargetLang, req.Credential, c.cfg.ChunkConcurrency)
	if err != nil {
		c.backendFailures.Add(1)
		logger.Error().Err(err).Int("chunks", len(chunking.Chunks)).Msg("semantic translation failed")
		return nil, fmt.Errorf("semantic translation: %w", err)
	}
	translation := chunking.Reassemble(req.Text, parts)
	stageTimes[StageSemanticTranslation] = time.Since(t)

	t = time.Now()
	metrics := c.assessor.AssessQuality(req.Text, translation, &chunking, quality.ForTarget(req.TargetLang))
	stageTimes[StageQualityAssessment] = time.Since(t)

	result := &internal.TranslationResult{
		Translation:    translation,
		OriginalText:   req.Text,
		QualityMetrics: metrics,
		ChunkingResult: chunking,
		StageTimes:     stageTimes,
		Metadata: map[string]any{
			"cache_hit":    false,
			"request_id":   requestID,
			"content_type": string(chunking.ContentType),
			"chunk_count":  len(chunking.Chunks),
		},
	}

	semanticText := translation
	notify(internal.TranslationUpdate{
		Stage:          internal.StageSemantic,
		Translation:    &semanticText,
		QualityMetrics: &metrics,
		Progress:       0.5,
		StatusMessage:  "semantic translation ready",
	})

	attempted := c.ShouldOptimize(metrics, req.UserPreference, req.ForceOptimization)
	logger.Debug().
		Float64("score", metrics.OverallScore).
		Str("preference", string(req.UserPreference)).
		Bool("force", req.ForceOptimization).
		Bool("optimize", attempted).
		Msg("optimization decision")

	if attempted {
		c.applyOptimization(ctx, req, result, notify, logger)
	} else {
		notify(internal.TranslationUpdate{
			Stage:          internal.StageSemantic,
			Translation:    &semanticText,
			QualityMetrics: &metrics,
			Progress:       1.0,
			StatusMessage:  "translation complete",
		})
	}

	c.store(ctx, req, result, attempted, logger)

	result.ProcessingTime = time.Since(start)
	return result, nil
}

// applyOptimization runs the optimizer and adopts its result on success. On
// any failure result is left exactly as it was.
func (c *Controller) applyOptimization(ctx context.Context, req internal.TranslationRequest, result *internal.TranslationResult, notify func(internal.TranslationUpdate), logger zerolog.Logger) {
	c.optimizationsAttempted.Add(1)
	strategy := optimizer.StrategyFor(req.UserPreference)

	metrics := result.QualityMetrics
	notify(internal.TranslationUpdate{
		Stage:          internal.StageAnalyzing,
		QualityMetrics: &metrics,
		Progress:       0.6,
		StatusMessage:  "analyzing quality",
		Metadata:       map[string]any{"suggestions": metrics.ImprovementSuggestions},
	})
	notify(internal.TranslationUpdate{
		Stage:         internal.StageOptimizing,
		Progress:      0.7,
		StatusMessage: "searching for a better chunk size",
		Metadata:      map[string]any{"strategy": strategy.Name},
	})

	t := time.Now()
	opt, err := c.optimize(ctx, req, result, strategy)
	if err != nil {
		c.optimizationFailures.Add(1)
		logger.Warn().Err(err).Str("strategy", strategy.Name).Msg("optimization unavailable, keeping semantic translation")
		translation := result.Translation
		notify(internal.TranslationUpdate{
			Stage:          internal.StageOptimizing,
			Translation:    &translation,
			QualityMetrics: &metrics,
			Progress:       1.0,
			StatusMessage:  "optimization unavailable, keeping semantic translation",
		})
		return
	}

	result.Translation = opt.OptimalTranslation
	result.QualityMetrics = opt.OptimalQuality
	result.ChunkingResult = opt.OptimalChunking
	result.OptimizationApplied = true
	result.StageTimes[StageOptimization] = time.Since(t)
	result.Metadata["optimal_chunk_size"] = opt.OptimalChunkSize
	result.Metadata["quality_improvement"] = opt.QualityImprovement
	result.Metadata["optimization_confidence"] = opt.OptimizationConfidence
	result.Metadata["convergence_iterations"] = opt.ConvergenceIterations
	c.optimizationsApplied.Add(1)

	logger.Info().
		Int("chunk_size", opt.OptimalChunkSize).
		Float64("improvement", opt.QualityImprovement).
		Int("iterations", opt.ConvergenceIterations).
		Msg("optimization applied")

	translation := result.Translation
	final := result.QualityMetrics
	notify(internal.TranslationUpdate{
		Stage:          internal.StageOptimized,
		Translation:    &translation,
		QualityMetrics: &final,
		Progress:       1.0,
		StatusMessage:  "optimized translation ready",
		Metadata:       map[string]any{"optimal_chunk_size": opt.OptimalChunkSize},
	})
}

// optimize calls the optimizer, turning panics and empty results into errors.
func (c *Controller) optimize(ctx context.Context, req internal.TranslationRequest, semantic *internal.TranslationResult, strategy optimizer.Strategy) (res *internal.OptimizationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: panic: %v", optimizer.ErrOptimizationUnavailable, r)
		}
	}()

	snapshot := *semantic
	res, err = c.optimizer.OptimizeTranslation(ctx, req, &snapshot, strategy)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty result", optimizer.ErrOptimizationUnavailable)
	}
	return res, nil
}
