package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxOptimizationTime is the soft optimization budget used when a
// request does not set one.
const DefaultMaxOptimizationTime = 5 * time.Second

// UserPreference expresses the caller's speed/quality trade-off.
type UserPreference string

const (
	PreferenceFast     UserPreference = "fast"
	PreferenceBalanced UserPreference = "balanced"
	PreferenceQuality  UserPreference = "quality"
)

// ParseUserPreference maps free-form input to a UserPreference.
func ParseUserPreference(raw string) (UserPreference, error) {
	switch p := UserPreference(strings.ToLower(strings.TrimSpace(raw))); p {
	case PreferenceFast, PreferenceBalanced, PreferenceQuality:
		return p, nil
	case "":
		return PreferenceBalanced, nil
	default:
		return "", fmt.Errorf("unknown preference %q (want fast, balanced or quality)", raw)
	}
}

// OptimizationLevel discriminates first-pass results from optimized ones in
// the cache.
type OptimizationLevel string

const (
	LevelSemantic  OptimizationLevel = "semantic"
	LevelOptimized OptimizationLevel = "optimized"
)

type TranslationRequest struct {
	Text                string         `json:"text"`
	SourceLang          string         `json:"source_lang"`
	TargetLang          string         `json:"target_lang"`
	Credential          string         `json:"-"`
	UserPreference      UserPreference `json:"user_preference"`
	ForceOptimization   bool           `json:"force_optimization"`
	MaxOptimizationTime time.Duration  `json:"max_optimization_time"`
}

// OptimizationBudget returns MaxOptimizationTime or the default when unset.
func (r TranslationRequest) OptimizationBudget() time.Duration {
	if r.MaxOptimizationTime <= 0 {
		return DefaultMaxOptimizationTime
	}
	return r.MaxOptimizationTime
}

// ContentType is the chunker's structural classification of a text.
type ContentType string

const (
	ContentShort          ContentType = "short"
	ContentConversational ContentType = "conversational"
	ContentNarrative      ContentType = "narrative"
	ContentTechnical      ContentType = "technical"
	ContentMixed          ContentType = "mixed"
)

// Span is a half-open [Start, End) byte range into the original text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type ChunkingResult struct {
	Chunks              []string       `json:"chunks"`
	Offsets             []Span         `json:"offsets"`
	ContentType         ContentType    `json:"content_type"`
	CoherenceScore      float64        `json:"coherence_score"`
	OptimalSizeEstimate int            `json:"optimal_size_estimate"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// Reassemble joins translated parts (one per chunk, in chunk order) using the
// whitespace that separated the corresponding chunks in original. Whitespace
// before the first chunk and after the last one is carried over verbatim.
func (c *ChunkingResult) Reassemble(original string, parts []string) string {
	var sb strings.Builder
	if len(parts) > 0 && len(c.Offsets) > 0 {
		sb.WriteString(edgeSpace(original, 0, c.Offsets[0].Start))
	}
	for i, part := range parts {
		if i > 0 && i < len(c.Offsets) {
			sb.WriteString(gapSeparator(original, c.Offsets[i-1].End, c.Offsets[i].Start))
		}
		sb.WriteString(part)
	}
	if n := len(parts); n > 0 && n == len(c.Offsets) {
		sb.WriteString(edgeSpace(original, c.Offsets[n-1].End, len(original)))
	}
	return sb.String()
}

// edgeSpace returns text[from:to] when it is all whitespace, else "".
func edgeSpace(text string, from, to int) string {
	if from < 0 || to > len(text) || from >= to {
		return ""
	}
	edge := text[from:to]
	if strings.TrimSpace(edge) != "" {
		return ""
	}
	return edge
}

func gapSeparator(text string, from, to int) string {
	if from < 0 || to > len(text) || from >= to {
		return ""
	}
	gap := text[from:to]
	switch {
	case strings.Contains(gap, "\n\n") || strings.Contains(gap, "\r\n\r\n"):
		return "\n\n"
	case strings.ContainsAny(gap, "\r\n"):
		return "\n"
	default:
		return " "
	}
}

// QualityGrade is an ordinal band derived from an overall score.
type QualityGrade int

const (
	GradeUnacceptable QualityGrade = iota
	GradePoor
	GradeAcceptable
	GradeGood
	GradeExcellent
)

func (g QualityGrade) String() string {
	switch g {
	case GradeExcellent:
		return "excellent"
	case GradeGood:
		return "good"
	case GradeAcceptable:
		return "acceptable"
	case GradePoor:
		return "poor"
	default:
		return "unacceptable"
	}
}

type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 { return i.Upper - i.Lower }

// QualityMetrics is produced fresh per assessment and never mutated afterwards.
type QualityMetrics struct {
	OverallScore           float64            `json:"overall_score"`
	DimensionScores        map[string]float64 `json:"dimension_scores"`
	ConfidenceInterval     Interval           `json:"confidence_interval"`
	Grade                  QualityGrade       `json:"quality_grade"`
	OptimizationNeeded     bool               `json:"optimization_needed"`
	ImprovementSuggestions []string           `json:"improvement_suggestions,omitempty"`
	Metadata               map[string]any     `json:"metadata,omitempty"`
}

// SearchPoint is one sample taken by the chunk-size optimizer.
type SearchPoint struct {
	ChunkSize int           `json:"chunk_size"`
	Quality   float64       `json:"quality"`
	Offset    time.Duration `json:"offset"`
}

type OptimizationResult struct {
	OptimalChunkSize       int            `json:"optimal_chunk_size"`
	OptimalTranslation     string         `json:"optimal_translation"`
	OptimalQualityScore    float64        `json:"optimal_quality_score"`
	OptimalQuality         QualityMetrics `json:"optimal_quality"`
	OptimalChunking        ChunkingResult `json:"optimal_chunking"`
	QualityImprovement     float64        `json:"quality_improvement"`
	ConfidenceInterval     Interval       `json:"confidence_interval"`
	OptimizationConfidence float64        `json:"optimization_confidence"`
	SearchPoints           []SearchPoint  `json:"search_points"`
	ConvergenceIterations  int            `json:"convergence_iterations"`
	TotalOptimizationTime  time.Duration  `json:"total_optimization_time"`
	Metadata               map[string]any `json:"metadata,omitempty"`
}

// CacheKey compares all four fields verbatim; no normalization is applied.
type CacheKey struct {
	Text              string            `json:"text"`
	SourceLang        string            `json:"source_lang"`
	TargetLang        string            `json:"target_lang"`
	OptimizationLevel OptimizationLevel `json:"optimization_level"`
}

// Fingerprint returns a compact storage key. Fields are length-prefixed so two
// keys share a fingerprint only if they are equal.
func (k CacheKey) Fingerprint() string {
	h := sha256.New()
	for _, f := range []string{k.Text, k.SourceLang, k.TargetLang, string(k.OptimizationLevel)} {
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type CacheEntry struct {
	Key            CacheKey       `json:"key"`
	Translation    string         `json:"translation"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`
	ChunkingResult ChunkingResult `json:"chunking_result"`
	CreatedAt      time.Time      `json:"created_at"`
	AccessCount    int64          `json:"access_count"`
	HitCount       int64          `json:"hit_count"`
}

// TranslationStage names a phase of the adaptive pipeline.
type TranslationStage string

const (
	StageSemantic   TranslationStage = "semantic"
	StageAnalyzing  TranslationStage = "analyzing"
	StageOptimizing TranslationStage = "optimizing"
	StageOptimized  TranslationStage = "optimized"
)

type TranslationUpdate struct {
	Stage          TranslationStage `json:"stage"`
	Translation    *string          `json:"translation,omitempty"`
	QualityMetrics *QualityMetrics  `json:"quality_metrics,omitempty"`
	Progress       float64          `json:"progress"`
	StatusMessage  string           `json:"status_message"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

type TranslationResult struct {
	Translation         string                   `json:"translation"`
	OriginalText        string                   `json:"original_text"`
	QualityMetrics      QualityMetrics           `json:"quality_metrics"`
	ChunkingResult      ChunkingResult           `json:"chunking_result"`
	ProcessingTime      time.Duration            `json:"processing_time"`
	CacheHit            bool                     `json:"cache_hit"`
	OptimizationApplied bool                     `json:"optimization_applied"`
	StageTimes          map[string]time.Duration `json:"stage_times"`
	Metadata            map[string]any           `json:"metadata"`
}
