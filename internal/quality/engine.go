// Package quality scores a translation across independent dimensions and
// folds them into one confidence-bounded metric.
package quality

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/valpere/adaptran/internal"
)

// Dimension names as they appear in QualityMetrics.DimensionScores.
const (
	DimModelConfidence      = "model_confidence"
	DimFluency              = "fluency"
	DimLengthRatio          = "length_ratio"
	DimSemanticPreservation = "semantic_preservation"
	DimChunkCoherence       = "chunk_coherence"
	DimLanguageMatch        = "language_match"
)

// dimensionOrder fixes iteration order so aggregation is deterministic.
var dimensionOrder = []string{
	DimModelConfidence,
	DimFluency,
	DimLengthRatio,
	DimSemanticPreservation,
	DimChunkCoherence,
	DimLanguageMatch,
}

var suggestions = map[string]string{
	DimModelConfidence:      "backend output contains artifacts; consider a different service or model",
	DimFluency:              "output reads unevenly; smaller chunks may reduce repetition and truncation",
	DimLengthRatio:          "translation length is implausible for the source; check for truncation or padding",
	DimSemanticPreservation: "numbers or markup were lost; protect structured content before translating",
	DimChunkCoherence:       "chunks split mid-sentence; try a chunk size aligned to paragraph boundaries",
	DimLanguageMatch:        "output does not look like the target language",
}

// LanguageScorer rates how plausibly text is written in targetLang.
type LanguageScorer interface {
	Score(text, targetLang string) float64
}

type Config struct {
	Weights         map[string]float64 `mapstructure:"weights"`
	OptimizationBar float64            `mapstructure:"optimization_bar"`
	DimensionFloor  float64            `mapstructure:"dimension_floor"`
}

func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			DimModelConfidence:      0.2,
			DimFluency:              0.2,
			DimLengthRatio:          0.2,
			DimSemanticPreservation: 0.25,
			DimChunkCoherence:       0.15,
			DimLanguageMatch:        0.2,
		},
		OptimizationBar: 0.75,
		DimensionFloor:  0.5,
	}
}

type Option func(*Engine)

// WithLanguageScorer enables the language_match dimension.
func WithLanguageScorer(s LanguageScorer) Option {
	return func(e *Engine) { e.lang = s }
}

// Engine is stateless after construction and safe for concurrent use.
type Engine struct {
	cfg  Config
	lang LanguageScorer
}

// NewEngine fills unset weights and thresholds from DefaultConfig.
func NewEngine(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	weights := make(map[string]float64, len(def.Weights))
	for k, v := range def.Weights {
		weights[k] = v
	}
	for k, v := range cfg.Weights {
		if v >= 0 {
			weights[k] = v
		}
	}
	cfg.Weights = weights
	if cfg.OptimizationBar <= 0 {
		cfg.OptimizationBar = def.OptimizationBar
	}
	if cfg.DimensionFloor <= 0 {
		cfg.DimensionFloor = def.DimensionFloor
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type assessParams struct {
	targetLang string
}

type AssessOption func(*assessParams)

// ForTarget passes the expected output language to the language_match
// dimension.
func ForTarget(lang string) AssessOption {
	return func(p *assessParams) { p.targetLang = lang }
}

// AssessQuality scores translated against original. chunking may be nil, in
// which case chunk_coherence is skipped and the confidence interval widens.
func (e *Engine) AssessQuality(original, translated string, chunking *internal.ChunkingResult, opts ...AssessOption) internal.QualityMetrics {
	var p assessParams
	for _, opt := range opts {
		opt(&p)
	}

	scores := map[string]float64{
		DimModelConfidence:      scoreModelConfidence(translated),
		DimFluency:              scoreFluency(original, translated),
		DimLengthRatio:          scoreLengthRatio(original, translated),
		DimSemanticPreservation: scoreSemanticPreservation(original, translated),
	}
	if chunking != nil {
		scores[DimChunkCoherence] = clamp01(chunking.CoherenceScore)
	}
	if e.lang != nil && p.targetLang != "" {
		scores[DimLanguageMatch] = clamp01(e.lang.Score(translated, p.targetLang))
	}

	overall := e.aggregate(scores)
	half := 0.03 + 0.5*stddev(scores)
	evidence := "full"
	if chunking == nil {
		half += 0.08
		evidence = "reduced"
	}
	if utf8.RuneCountInString(original) < 40 {
		half += 0.05
	}

	needed := overall < e.cfg.OptimizationBar
	for _, s := range scores {
		if s < e.cfg.DimensionFloor {
			needed = true
		}
	}

	return internal.QualityMetrics{
		OverallScore:    overall,
		DimensionScores: scores,
		ConfidenceInterval: internal.Interval{
			Lower: math.Max(0, overall-half),
			Upper: math.Min(1, overall+half),
		},
		Grade:                  Grade(overall),
		OptimizationNeeded:     needed,
		ImprovementSuggestions: e.suggest(scores),
		Metadata: map[string]any{
			"evidence":          evidence,
			"dimension_count":   len(scores),
			"original_length":   utf8.RuneCountInString(original),
			"translated_length": utf8.RuneCountInString(translated),
		},
	}
}

// Grade discretizes an overall score.
func Grade(score float64) internal.QualityGrade {
	switch {
	case score >= 0.9:
		return internal.GradeExcellent
	case score >= 0.8:
		return internal.GradeGood
	case score >= 0.65:
		return internal.GradeAcceptable
	case score >= 0.45:
		return internal.GradePoor
	default:
		return internal.GradeUnacceptable
	}
}

func (e *Engine) aggregate(scores map[string]float64) float64 {
	var sum, weights float64
	for _, dim := range dimensionOrder {
		s, ok := scores[dim]
		if !ok {
			continue
		}
		w := e.cfg.Weights[dim]
		sum += w * s
		weights += w
	}
	if weights == 0 {
		return mean(scores)
	}
	return clamp01(sum / weights)
}

func (e *Engine) suggest(scores map[string]float64) []string {
	var weak []string
	for _, dim := range dimensionOrder {
		if s, ok := scores[dim]; ok && s < e.cfg.OptimizationBar {
			weak = append(weak, dim)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return scores[weak[i]] < scores[weak[j]] })

	out := make([]string, 0, len(weak))
	for _, dim := range weak {
		out = append(out, suggestions[dim])
	}
	return out
}

func mean(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, dim := range dimensionOrder {
		sum += scores[dim]
	}
	return sum / float64(len(scores))
}

func stddev(scores map[string]float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	m := mean(scores)
	var v float64
	for _, dim := range dimensionOrder {
		if s, ok := scores[dim]; ok {
			v += (s - m) * (s - m)
		}
	}
	return math.Sqrt(v / float64(len(scores)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
