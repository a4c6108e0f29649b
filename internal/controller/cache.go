package controller

import (
	"context"
	"maps"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal"
)

// lookup consults the cache in preference order. Quality requests want an
// optimized entry first and accept a semantic one only if it already went
// through the optimizer. Everyone else reads semantic first and is happy
// with an optimized result too.
func (c *Controller) lookup(ctx context.Context, req internal.TranslationRequest, logger zerolog.Logger) *internal.CacheEntry {
	order := []internal.OptimizationLevel{internal.LevelSemantic, internal.LevelOptimized}
	if req.UserPreference == internal.PreferenceQuality {
		order = []internal.OptimizationLevel{internal.LevelOptimized, internal.LevelSemantic}
	}

	for _, level := range order {
		entry, err := c.cache.GetTranslation(ctx, req.Text, req.SourceLang, req.TargetLang, level)
		if err != nil {
			logger.Warn().Err(err).Msg("cache lookup aborted")
			return nil
		}
		if entry == nil {
			continue
		}
		if req.UserPreference == internal.PreferenceQuality && level == internal.LevelSemantic && !optimizationAttempted(entry.QualityMetrics) {
			logger.Debug().Msg("cached semantic entry was never optimized, ignoring")
			continue
		}
		return entry
	}
	return nil
}

// store caches the final result. Results at or above the quality threshold
// are cached as optimized. Failures are logged only.
func (c *Controller) store(ctx context.Context, req internal.TranslationRequest, result *internal.TranslationResult, attempted bool, logger zerolog.Logger) {
	if c.cache == nil {
		return
	}

	level := internal.LevelSemantic
	if result.QualityMetrics.OverallScore >= c.cfg.QualityThreshold {
		level = internal.LevelOptimized
	}

	metrics := result.QualityMetrics
	if attempted {
		metrics.Metadata = maps.Clone(metrics.Metadata)
		if metrics.Metadata == nil {
			metrics.Metadata = make(map[string]any, 1)
		}
		metrics.Metadata[metaOptimizationAttempted] = true
	}

	err := c.cache.StoreTranslation(ctx, req.Text, result.Translation, req.SourceLang, req.TargetLang, level, metrics, result.ChunkingResult)
	if err != nil {
		logger.Warn().Err(err).Str("level", string(level)).Msg("caching result failed")
		return
	}
	result.Metadata["cached_level"] = string(level)
}

func optimizationAttempted(m internal.QualityMetrics) bool {
	v, _ := m.Metadata[metaOptimizationAttempted].(bool)
	return v
}

func resultFromEntry(req internal.TranslationRequest, entry *internal.CacheEntry, stageTimes map[string]time.Duration, requestID string) *internal.TranslationResult {
	return &internal.TranslationResult{
		Translation:         entry.Translation,
		OriginalText:        req.Text,
		QualityMetrics:      entry.QualityMetrics,
		ChunkingResult:      entry.ChunkingResult,
		CacheHit:            true,
		OptimizationApplied: entry.Key.OptimizationLevel == internal.LevelOptimized,
		StageTimes:          stageTimes,
		Metadata: map[string]any{
			"cache_hit":                true,
			"request_id":               requestID,
			"cached_timestamp":         entry.CreatedAt,
			"cache_access_count":       entry.AccessCount,
			"cache_optimization_level": string(entry.Key.OptimizationLevel),
		},
	}
}
