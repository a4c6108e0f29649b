// Package optimizer searches the chunk-size parameter for the size that
// maximizes assessed translation quality within a soft time budget.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal"
	"github.com/valpere/adaptran/internal/quality"
	"github.com/valpere/adaptran/internal/translator"
)

// ErrOptimizationUnavailable is returned for every optimizer failure. Callers
// fall back to the result they already have.
var ErrOptimizationUnavailable = errors.New("optimization unavailable")

// Stop reasons recorded under Metadata["stop_reason"].
const (
	StopConverged        = "converged"
	StopMaxIterations    = "max_iterations"
	StopTimeBudget       = "time_budget"
	StopBracketCollapsed = "bracket_collapsed"
)

const defaultConcurrency = 4

// Rechunker partitions text at an explicit chunk size.
type Rechunker interface {
	ChunkAtSize(text string, size int) internal.ChunkingResult
}

// Assessor scores a translation.
type Assessor interface {
	AssessQuality(original, translated string, chunking *internal.ChunkingResult, opts ...quality.AssessOption) internal.QualityMetrics
}

type Config struct {
	MinChunkSize int `mapstructure:"min_chunk_size"`
	MaxChunkSize int `mapstructure:"max_chunk_size"`
	// Concurrency caps in-flight backend calls while translating one sample.
	Concurrency int `mapstructure:"concurrency"`
}

type BinarySearchOptimizer struct {
	backend   translator.Backend
	rechunker Rechunker
	assessor  Assessor
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time
}

// New builds an optimizer. When rechunker reports its own Bounds, the search
// range is narrowed to them so every sampled size is one the rechunker
// actually uses.
func New(backend translator.Backend, rechunker Rechunker, assessor Assessor, cfg Config, logger zerolog.Logger) *BinarySearchOptimizer {
	if b, ok := rechunker.(interface{ Bounds() (int, int) }); ok {
		lo, hi := b.Bounds()
		if cfg.MinChunkSize < lo {
			cfg.MinChunkSize = lo
		}
		if cfg.MaxChunkSize <= 0 || cfg.MaxChunkSize > hi {
			cfg.MaxChunkSize = hi
		}
		if cfg.MaxChunkSize < cfg.MinChunkSize {
			cfg.MinChunkSize, cfg.MaxChunkSize = lo, hi
		}
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = 50
	}
	if cfg.MaxChunkSize < cfg.MinChunkSize {
		cfg.MaxChunkSize = 2000
		if cfg.MaxChunkSize < cfg.MinChunkSize {
			cfg.MaxChunkSize = cfg.MinChunkSize
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &BinarySearchOptimizer{
		backend:   backend,
		rechunker: rechunker,
		assessor:  assessor,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type sample struct {
	size        int
	translation string
	metrics     internal.QualityMetrics
	chunking    internal.ChunkingResult
}

// search holds the state of one OptimizeTranslation call.
type search struct {
	o      *BinarySearchOptimizer
	req    internal.TranslationRequest
	start  time.Time
	budget time.Duration
	memo   map[int]*sample
	points []internal.SearchPoint
	best   *sample
	lo, hi int
	centre int
}

// OptimizeTranslation re-chunks and re-translates req.Text at candidate
// chunk sizes around the semantic result's estimate. Each iteration samples
// the midpoints of the lower and upper half of the bracket and keeps the half
// that scored better.
//
// The search stops on the first of: best-score gain below strategy.Epsilon,
// strategy.MaxIterations, req.OptimizationBudget() elapsed, or a bracket
// narrower than one character. Every failure, including a search whose best
// sample does not beat the semantic score, is ErrOptimizationUnavailable.
func (o *BinarySearchOptimizer) OptimizeTranslation(ctx context.Context, req internal.TranslationRequest, semantic *internal.TranslationResult, strategy Strategy) (*internal.OptimizationResult, error) {
	if semantic == nil {
		return nil, fmt.Errorf("%w: no semantic result", ErrOptimizationUnavailable)
	}
	if strategy.MaxIterations <= 0 {
		strategy.MaxIterations = 1
	}

	s := &search{
		o:      o,
		req:    req,
		start:  o.now(),
		budget: req.OptimizationBudget(),
		memo:   make(map[int]*sample),
	}
	s.seed(semantic, strategy)
	initial := [2]int{s.lo, s.hi}
	initialWidth := s.hi - s.lo

	baseline := semantic.QualityMetrics.OverallScore
	prevBest := baseline
	iterations := 0
	stop := ""

	for stop == "" {
		if s.elapsed() >= s.budget {
			stop = StopTimeBudget
			break
		}
		if s.hi-s.lo <= 1 {
			stop = StopBracketCollapsed
			break
		}

		left := s.lo + (s.centre-s.lo)/2
		right := s.centre + (s.hi-s.centre)/2

		l, err := s.evaluate(ctx, left)
		if err != nil {
			return nil, err
		}
		if s.elapsed() >= s.budget {
			iterations++
			stop = StopTimeBudget
			break
		}
		r, err := s.evaluate(ctx, right)
		if err != nil {
			return nil, err
		}
		iterations++

		if l.metrics.OverallScore >= r.metrics.OverallScore {
			s.hi = s.centre
			s.centre = left
		} else {
			s.lo = s.centre
			s.centre = right
		}

		current := s.best.metrics.OverallScore
		gain := current - prevBest
		prevBest = math.Max(prevBest, current)

		switch {
		case gain < strategy.Epsilon:
			stop = StopConverged
		case iterations >= strategy.MaxIterations:
			stop = StopMaxIterations
		}
	}

	total := s.elapsed()
	log := o.logger.Debug().
		Str("strategy", strategy.Name).
		Str("stop_reason", stop).
		Int("iterations", iterations).
		Int("samples", len(s.points)).
		Dur("elapsed", total)

	if s.best == nil {
		log.Msg("optimizer took no samples")
		return nil, fmt.Errorf("%w: no samples (%s)", ErrOptimizationUnavailable, stop)
	}
	log.Int("best_size", s.best.size).Float64("best_score", s.best.metrics.OverallScore).Msg("optimizer stopped")

	if s.best.metrics.OverallScore <= baseline {
		return nil, fmt.Errorf("%w: best score %.3f does not improve on %.3f", ErrOptimizationUnavailable, s.best.metrics.OverallScore, baseline)
	}

	confidence := 0.0
	if initialWidth > 0 {
		confidence = clamp01(1 - float64(s.hi-s.lo)/float64(initialWidth))
	}

	return &internal.OptimizationResult{
		OptimalChunkSize:       s.best.size,
		OptimalTranslation:     s.best.translation,
		OptimalQualityScore:    s.best.metrics.OverallScore,
		OptimalQuality:         s.best.metrics,
		OptimalChunking:        s.best.chunking,
		QualityImprovement:     s.best.metrics.OverallScore - baseline,
		ConfidenceInterval:     s.best.metrics.ConfidenceInterval,
		OptimizationConfidence: confidence,
		SearchPoints:           s.points,
		ConvergenceIterations:  iterations,
		TotalOptimizationTime:  total,
		Metadata: map[string]any{
			"strategy":      strategy.Name,
			"stop_reason":   stop,
			"initial_range": initial,
			"final_range":   [2]int{s.lo, s.hi},
		},
	}, nil
}

// seed centres the bracket on the semantic chunk-size estimate. Sizes past
// the text length all yield one chunk, so the upper edge stops there.
func (s *search) seed(semantic *internal.TranslationResult, strategy Strategy) {
	cfg := s.o.cfg
	textLen := utf8.RuneCountInString(s.req.Text)

	upper := cfg.MaxChunkSize
	if textLen < upper {
		upper = max(textLen, cfg.MinChunkSize)
	}

	centre := semantic.ChunkingResult.OptimalSizeEstimate
	if centre <= 0 {
		centre = textLen
	}
	centre = min(max(centre, cfg.MinChunkSize), upper)

	half := int(math.Round(strategy.RangeFactor * float64(centre)))
	s.centre = centre
	s.lo = max(centre-half, cfg.MinChunkSize)
	s.hi = min(centre+half, upper)
}

func (s *search) elapsed() time.Duration {
	return s.o.now().Sub(s.start)
}

func (s *search) evaluate(ctx context.Context, size int) (*sample, error) {
	if cached, ok := s.memo[size]; ok {
		return cached, nil
	}

	o := s.o
	chunking := o.rechunker.ChunkAtSize(s.req.Text, size)
	parts, err := translator.TranslateChunks(ctx, o.backend, chunking.Chunks, s.req.SourceLang, s.req.TargetLang, s.req.Credential, o.cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: size %d: %w", ErrOptimizationUnavailable, size, err)
	}
	translation := chunking.Reassemble(s.req.Text, parts)
	metrics := o.assessor.AssessQuality(s.req.Text, translation, &chunking, quality.ForTarget(s.req.TargetLang))

	smp := &sample{size: size, translation: translation, metrics: metrics, chunking: chunking}
	s.memo[size] = smp
	s.points = append(s.points, internal.SearchPoint{
		ChunkSize: size,
		Quality:   metrics.OverallScore,
		Offset:    s.elapsed(),
	})
	if s.best == nil || metrics.OverallScore > s.best.metrics.OverallScore {
		s.best = smp
	}
	return smp, nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
