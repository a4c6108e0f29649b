package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/adaptran/internal"
)

type stubScorer struct {
	score float64
	calls int
}

func (s *stubScorer) Score(text, targetLang string) float64 {
	s.calls++
	return s.score
}

func chunking(coherence float64) *internal.ChunkingResult {
	return &internal.ChunkingResult{
		Chunks:         []string{"a"},
		Offsets:        []internal.Span{{Start: 0, End: 1}},
		CoherenceScore: coherence,
	}
}

func TestAssessQuality_GoodTranslation(t *testing.T) {
	e := NewEngine(DefaultConfig())

	m := e.AssessQuality("Hello world", "Bonjour le monde", nil)

	assert.InDelta(t, 1.0, m.OverallScore, 1e-9)
	assert.Equal(t, internal.GradeExcellent, m.Grade)
	assert.False(t, m.OptimizationNeeded)
	assert.Empty(t, m.ImprovementSuggestions)
	assert.Equal(t, "reduced", m.Metadata["evidence"])
	assert.Equal(t, 4, m.Metadata["dimension_count"])
	assert.NotContains(t, m.DimensionScores, DimChunkCoherence)
	assert.NotContains(t, m.DimensionScores, DimLanguageMatch)
}

func TestAssessQuality_ChunkingNarrowsInterval(t *testing.T) {
	e := NewEngine(DefaultConfig())
	original := "The committee approved the budget for next year after a long discussion."
	translated := "Le comité a approuvé le budget de l'année prochaine après une longue discussion."

	reduced := e.AssessQuality(original, translated, nil)
	full := e.AssessQuality(original, translated, chunking(1.0))

	assert.Equal(t, "full", full.Metadata["evidence"])
	assert.Contains(t, full.DimensionScores, DimChunkCoherence)
	assert.Less(t, full.ConfidenceInterval.Width(), reduced.ConfidenceInterval.Width())
}

func TestAssessQuality_IntervalBracketsOverall(t *testing.T) {
	e := NewEngine(DefaultConfig())

	cases := []struct {
		original, translated string
		chunking             *internal.ChunkingResult
	}{
		{"Hello world", "Bonjour le monde", nil},
		{"Hello world", "", nil},
		{"Call 555 now. Please.", "Appelez maintenant", chunking(0.2)},
		{strings.Repeat("word ", 50), strings.Repeat("mot ", 50), chunking(0.6)},
	}

	for _, c := range cases {
		m := e.AssessQuality(c.original, c.translated, c.chunking)
		assert.GreaterOrEqual(t, m.OverallScore, 0.0)
		assert.LessOrEqual(t, m.OverallScore, 1.0)
		assert.LessOrEqual(t, m.ConfidenceInterval.Lower, m.OverallScore)
		assert.GreaterOrEqual(t, m.ConfidenceInterval.Upper, m.OverallScore)
		assert.GreaterOrEqual(t, m.ConfidenceInterval.Lower, 0.0)
		assert.LessOrEqual(t, m.ConfidenceInterval.Upper, 1.0)
	}
}

func TestAssessQuality_EmptyTranslation(t *testing.T) {
	e := NewEngine(DefaultConfig())

	m := e.AssessQuality("Hello world", "", nil)

	assert.Equal(t, 0.0, m.OverallScore)
	assert.Equal(t, internal.GradeUnacceptable, m.Grade)
	assert.True(t, m.OptimizationNeeded)
	assert.Len(t, m.ImprovementSuggestions, 4)
}

func TestAssessQuality_UntranslatedOutput(t *testing.T) {
	e := NewEngine(DefaultConfig())
	text := "This sentence was returned by the backend without being translated at all."

	m := e.AssessQuality(text, text, chunking(1.0))

	assert.InDelta(t, 0.3, m.DimensionScores[DimSemanticPreservation], 1e-9)
	assert.True(t, m.OptimizationNeeded)
	require.NotEmpty(t, m.ImprovementSuggestions)
	assert.Equal(t, suggestions[DimSemanticPreservation], m.ImprovementSuggestions[0])
}

func TestAssessQuality_LostNumbers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	m := e.AssessQuality(
		"The meeting is at 10 and costs 250 dollars.",
		"La réunion est à dix heures et coûte deux cent cinquante dollars.",
		nil,
	)

	assert.InDelta(t, 0.5, m.DimensionScores[DimSemanticPreservation], 1e-9)
}

func TestAssessQuality_LLMArtifacts(t *testing.T) {
	e := NewEngine(DefaultConfig())

	m := e.AssessQuality("Good morning", "Here is the translation: Bonjour", nil)

	assert.InDelta(t, 0.6, m.DimensionScores[DimModelConfidence], 1e-9)
}

func TestAssessQuality_LanguageScorer(t *testing.T) {
	scorer := &stubScorer{score: 0.2}
	e := NewEngine(DefaultConfig(), WithLanguageScorer(scorer))

	without := e.AssessQuality("Hello world", "Bonjour le monde", nil)
	assert.NotContains(t, without.DimensionScores, DimLanguageMatch)
	assert.Equal(t, 0, scorer.calls)

	with := e.AssessQuality("Hello world", "Bonjour le monde", nil, ForTarget("fr"))
	assert.Equal(t, 1, scorer.calls)
	assert.InDelta(t, 0.2, with.DimensionScores[DimLanguageMatch], 1e-9)
	assert.Less(t, with.OverallScore, without.OverallScore)
	assert.True(t, with.OptimizationNeeded)
}

func TestAssessQuality_CustomWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = map[string]float64{DimChunkCoherence: 0}
	e := NewEngine(cfg)

	m := e.AssessQuality("Hello world", "Bonjour le monde", chunking(0.0))

	// a zero-weight dimension is still reported but does not move the score
	assert.InDelta(t, 1.0, m.OverallScore, 1e-9)
	assert.Equal(t, 0.0, m.DimensionScores[DimChunkCoherence])
	assert.True(t, m.OptimizationNeeded)
}

func TestSuggest_OrderedByAscendingScore(t *testing.T) {
	e := NewEngine(DefaultConfig())

	got := e.suggest(map[string]float64{
		DimModelConfidence: 0.7,
		DimFluency:         0.1,
		DimLengthRatio:     0.95,
		DimChunkCoherence:  0.4,
	})

	assert.Equal(t, []string{
		suggestions[DimFluency],
		suggestions[DimChunkCoherence],
		suggestions[DimModelConfidence],
	}, got)
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  internal.QualityGrade
	}{
		{1.0, internal.GradeExcellent},
		{0.9, internal.GradeExcellent},
		{0.85, internal.GradeGood},
		{0.8, internal.GradeGood},
		{0.7, internal.GradeAcceptable},
		{0.5, internal.GradePoor},
		{0.2, internal.GradeUnacceptable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score %v", tt.score)
	}
}

func TestScoreLengthRatio(t *testing.T) {
	tests := []struct {
		name                 string
		original, translated string
		want                 float64
	}{
		{"both empty", "", "", 1},
		{"empty output", "abcdefghij", "", 0},
		{"in range", "abcdefghij", "abcdefghijkl", 1},
		{"too short", "abcdefghij", "abc", 0.5},
		{"too long", "abcdefghij", strings.Repeat("a", 27), 0.5},
		{"far too long", "ab", strings.Repeat("a", 20), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scoreLengthRatio(tt.original, tt.translated), 1e-9)
		})
	}
}

func TestScoreFluency_Repetition(t *testing.T) {
	clean := scoreFluency("One two three four.", "Un deux trois quatre.")
	stutter := scoreFluency("One two three four.", "Un un un un deux trois.")

	assert.InDelta(t, 1.0, clean, 1e-9)
	assert.Less(t, stutter, clean)
}

func TestScoreSemanticPreservation_Markup(t *testing.T) {
	kept := scoreSemanticPreservation("Press <b>Save</b> now", "Appuyez sur <b>Enregistrer</b>")
	lost := scoreSemanticPreservation("Press <b>Save</b> now", "Appuyez sur Enregistrer")

	assert.InDelta(t, 1.0, kept, 1e-9)
	assert.InDelta(t, 0.5, lost, 1e-9)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"привіт", "привет", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.InDelta(t, 0.0, similarity("abc", "xyz"), 1e-9)
	assert.Greater(t, similarity("hello world", "hello world!"), 0.9)
}
