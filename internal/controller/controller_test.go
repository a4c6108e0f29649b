package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valpere/adaptran/internal"
	"github.com/valpere/adaptran/internal/cache"
	"github.com/valpere/adaptran/internal/optimizer"
	"github.com/valpere/adaptran/internal/quality"
	"github.com/valpere/adaptran/internal/translator"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Translate(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error) {
	args := m.Called(ctx, text, sourceLang, targetLang, credential)
	return args.String(0), args.Error(1)
}

type mockOptimizer struct {
	mock.Mock
}

func (m *mockOptimizer) OptimizeTranslation(ctx context.Context, req internal.TranslationRequest, semantic *internal.TranslationResult, strategy optimizer.Strategy) (*internal.OptimizationResult, error) {
	args := m.Called(ctx, req, semantic, strategy)
	res, _ := args.Get(0).(*internal.OptimizationResult)
	return res, args.Error(1)
}

type panickingOptimizer struct{}

func (panickingOptimizer) OptimizeTranslation(context.Context, internal.TranslationRequest, *internal.TranslationResult, optimizer.Strategy) (*internal.OptimizationResult, error) {
	panic("optimizer exploded")
}

// fixedAssessor returns the same overall score for every assessment.
type fixedAssessor struct {
	score float64
}

func (a fixedAssessor) AssessQuality(original, translated string, chunking *internal.ChunkingResult, opts ...quality.AssessOption) internal.QualityMetrics {
	return internal.QualityMetrics{
		OverallScore:       a.score,
		DimensionScores:    map[string]float64{quality.DimFluency: a.score},
		ConfidenceInterval: internal.Interval{Lower: a.score - 0.05, Upper: a.score + 0.05},
		Grade:              quality.Grade(a.score),
	}
}

func helloRequest(pref internal.UserPreference) internal.TranslationRequest {
	return internal.TranslationRequest{
		Text:           "Hello world",
		SourceLang:     "en",
		TargetLang:     "fr",
		UserPreference: pref,
	}
}

func helloBackend() *mockBackend {
	b := &mockBackend{}
	b.On("Translate", mock.Anything, "Hello world", "en", "fr", "").Return("Bonjour le monde", nil)
	return b
}

func newCache() *cache.Manager {
	return cache.NewManager(cache.NewMemoryStore(100))
}

func optimized(text string, score float64) *internal.OptimizationResult {
	return &internal.OptimizationResult{
		OptimalChunkSize:    120,
		OptimalTranslation:  text,
		OptimalQualityScore: score,
		OptimalQuality:      internal.QualityMetrics{OverallScore: score, Grade: quality.Grade(score)},
		OptimalChunking: internal.ChunkingResult{
			Chunks:  []string{"Hello world"},
			Offsets: []internal.Span{{Start: 0, End: 11}},
		},
		QualityImprovement:     score - 0.6,
		OptimizationConfidence: 0.8,
		ConvergenceIterations:  3,
	}
}

func stages(updates []internal.TranslationUpdate) []internal.TranslationStage {
	out := make([]internal.TranslationStage, len(updates))
	for i, u := range updates {
		out[i] = u.Stage
	}
	return out
}

func collect(updates *[]internal.TranslationUpdate) UpdateFunc {
	return func(u internal.TranslationUpdate) error {
		*updates = append(*updates, u)
		return nil
	}
}

func assertProgressMonotonic(t *testing.T, updates []internal.TranslationUpdate) {
	t.Helper()
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Progress, updates[i-1].Progress, "progress decreased at update %d", i)
	}
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Progress, 0.0)
		assert.LessOrEqual(t, u.Progress, 1.0)
	}
}

func TestTranslate_PreservesOriginalText(t *testing.T) {
	texts := []string{
		"Hello world",
		"",
		"  padded  ",
		strings.Repeat("A long paragraph sentence goes here. ", 80),
		"Line one.\n\nLine two with ünïcödé.",
	}
	backend := translator.BackendFunc(func(_ context.Context, text, _, _, _ string) (string, error) {
		return strings.ToUpper(text), nil
	})
	c := New(backend, WithAssessor(fixedAssessor{score: 0.9}))

	for _, text := range texts {
		req := helloRequest(internal.PreferenceBalanced)
		req.Text = text
		res, err := c.Translate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, text, res.OriginalText)
	}
}

func TestTranslate_SecondCallIsCacheHit(t *testing.T) {
	prefs := []internal.UserPreference{internal.PreferenceFast, internal.PreferenceBalanced, internal.PreferenceQuality}
	scores := []float64{0.6, 0.85, 0.95}

	for _, pref := range prefs {
		for _, score := range scores {
			backend := helloBackend()
			opt := &mockOptimizer{}
			opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, optimizer.ErrOptimizationUnavailable)

			c := New(backend, WithAssessor(fixedAssessor{score: score}), WithOptimizer(opt), WithCache(newCache()))
			req := helloRequest(pref)

			first, err := c.Translate(context.Background(), req)
			require.NoError(t, err)
			second, err := c.Translate(context.Background(), req)
			require.NoError(t, err)

			assert.False(t, first.CacheHit, "pref=%s score=%.2f", pref, score)
			assert.True(t, second.CacheHit, "pref=%s score=%.2f", pref, score)
			assert.Equal(t, first.Translation, second.Translation)
			assert.Equal(t, first.QualityMetrics.OverallScore, second.QualityMetrics.OverallScore)
			backend.AssertNumberOfCalls(t, "Translate", 1)
		}
	}
}

func TestTranslate_CacheHitResult(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.85}), WithCache(newCache()))
	req := helloRequest(internal.PreferenceBalanced)

	_, err := c.Translate(context.Background(), req)
	require.NoError(t, err)
	res, err := c.Translate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.CacheHit)
	assert.True(t, res.OptimizationApplied, "entry was cached at the optimized level")
	assert.Contains(t, res.StageTimes, StageCacheLookup)
	assert.NotContains(t, res.StageTimes, StageSemanticTranslation)
	assert.Equal(t, true, res.Metadata["cache_hit"])
	assert.Equal(t, int64(1), res.Metadata["cache_access_count"])
	assert.Equal(t, "optimized", res.Metadata["cache_optimization_level"])
	assert.Contains(t, res.Metadata, "cached_timestamp")
	assert.NotEmpty(t, res.Metadata["request_id"])
	assert.Equal(t, []string{"Hello world"}, res.ChunkingResult.Chunks)
}

func TestTranslate_QualityIgnoresUnoptimizedSemanticEntry(t *testing.T) {
	backend := helloBackend()
	mc := newCache()
	c := New(backend, WithAssessor(fixedAssessor{score: 0.6}), WithCache(mc))

	// fast never optimizes, so its low-scoring result is cached as semantic
	_, err := c.Translate(context.Background(), helloRequest(internal.PreferenceFast))
	require.NoError(t, err)

	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(optimized("Bonjour, le monde", 0.92), nil)
	c = New(backend, WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt), WithCache(mc))

	res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceQuality))
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.True(t, res.OptimizationApplied)
	opt.AssertExpectations(t)
}

func TestTranslate_WithoutCache(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.9}))
	req := helloRequest(internal.PreferenceBalanced)

	for i := 0; i < 2; i++ {
		res, err := c.Translate(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, res.CacheHit)
		assert.NotContains(t, res.StageTimes, StageCacheLookup)
	}

	stats := c.PerformanceStats(context.Background())
	assert.Nil(t, stats.CacheStats)
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(0), stats.CacheHits)
	assert.Equal(t, 0.8, stats.QualityThreshold)
}

func TestShouldOptimize(t *testing.T) {
	c := New(helloBackend())
	scores := []float64{0, 0.3, 0.79, 0.8, 0.85, 0.89, 0.9, 1}

	for _, s := range scores {
		q := internal.QualityMetrics{OverallScore: s}

		assert.False(t, c.ShouldOptimize(q, internal.PreferenceFast, false), "fast score=%.2f", s)
		assert.Equal(t, s < 0.8, c.ShouldOptimize(q, internal.PreferenceBalanced, false), "balanced score=%.2f", s)
		assert.Equal(t, s < 0.9, c.ShouldOptimize(q, internal.PreferenceQuality, false), "quality score=%.2f", s)

		for _, pref := range []internal.UserPreference{internal.PreferenceFast, internal.PreferenceBalanced, internal.PreferenceQuality} {
			assert.True(t, c.ShouldOptimize(q, pref, true), "force pref=%s score=%.2f", pref, s)
		}
	}
}

func TestShouldOptimize_CustomThresholds(t *testing.T) {
	c := New(helloBackend(), WithConfig(Config{QualityThreshold: 0.5, QualityPreferenceThreshold: 0.7}))
	q := internal.QualityMetrics{OverallScore: 0.6}

	assert.False(t, c.ShouldOptimize(q, internal.PreferenceBalanced, false))
	assert.True(t, c.ShouldOptimize(q, internal.PreferenceQuality, false))
}

func TestProgressiveTranslate_StageOrderWhenOptimized(t *testing.T) {
	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(optimized("Bonjour, le monde", 0.9), nil)
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt))

	var updates []internal.TranslationUpdate
	res, err := c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), collect(&updates))
	require.NoError(t, err)
	require.True(t, res.OptimizationApplied)

	assert.Equal(t, []internal.TranslationStage{
		internal.StageSemantic,
		internal.StageSemantic,
		internal.StageAnalyzing,
		internal.StageOptimizing,
		internal.StageOptimized,
	}, stages(updates))
	assertProgressMonotonic(t, updates)

	last := updates[len(updates)-1]
	assert.Equal(t, 1.0, last.Progress)
	require.NotNil(t, last.Translation)
	assert.Equal(t, "Bonjour, le monde", *last.Translation)
}

func TestProgressiveTranslate_StageOrderWithoutOptimization(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.95}))

	var updates []internal.TranslationUpdate
	res, err := c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), collect(&updates))
	require.NoError(t, err)
	assert.False(t, res.OptimizationApplied)

	for _, u := range updates {
		assert.Equal(t, internal.StageSemantic, u.Stage)
	}
	require.Len(t, updates, 3)
	assert.Equal(t, 1.0, updates[2].Progress)
	assertProgressMonotonic(t, updates)
}

func TestProgressiveTranslate_FallbackEndsInOptimizing(t *testing.T) {
	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("search failed"))
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt))

	var updates []internal.TranslationUpdate
	res, err := c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), collect(&updates))
	require.NoError(t, err)
	assert.False(t, res.OptimizationApplied)

	assert.Equal(t, []internal.TranslationStage{
		internal.StageSemantic,
		internal.StageSemantic,
		internal.StageAnalyzing,
		internal.StageOptimizing,
		internal.StageOptimizing,
	}, stages(updates))
	assertProgressMonotonic(t, updates)

	last := updates[len(updates)-1]
	assert.Equal(t, 1.0, last.Progress)
	require.NotNil(t, last.Translation)
	assert.Equal(t, res.Translation, *last.Translation)
}

func TestProgressiveTranslate_CacheHitEmitsOneUpdate(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.9}), WithCache(newCache()))
	req := helloRequest(internal.PreferenceBalanced)
	_, err := c.Translate(context.Background(), req)
	require.NoError(t, err)

	var updates []internal.TranslationUpdate
	res, err := c.ProgressiveTranslate(context.Background(), req, collect(&updates))
	require.NoError(t, err)
	assert.True(t, res.CacheHit)

	require.Len(t, updates, 1)
	assert.Equal(t, internal.StageSemantic, updates[0].Stage)
	assert.Equal(t, 1.0, updates[0].Progress)
	require.NotNil(t, updates[0].Translation)
	assert.Equal(t, "Bonjour le monde", *updates[0].Translation)
}

func TestProgressiveTranslate_FailingCallback(t *testing.T) {
	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(optimized("Bonjour, le monde", 0.9), nil)

	callbacks := map[string]UpdateFunc{
		"error": func(internal.TranslationUpdate) error { return errors.New("client went away") },
		"panic": func(internal.TranslationUpdate) error { panic("consumer bug") },
	}
	for name, cb := range callbacks {
		t.Run(name, func(t *testing.T) {
			c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt))

			res, err := c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), cb)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, "Bonjour, le monde", res.Translation)
			assert.Equal(t, "Hello world", res.OriginalText)
			assert.True(t, res.OptimizationApplied)
		})
	}
}

func TestProgressiveTranslate_NilCallback(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.9}))

	res, err := c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", res.Translation)
}

func TestTranslate_OptimizerErrorKeepsSemanticResult(t *testing.T) {
	optimizers := map[string]Optimizer{
		"error": func() Optimizer {
			m := &mockOptimizer{}
			m.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, optimizer.ErrOptimizationUnavailable)
			return m
		}(),
		"nil result": func() Optimizer {
			m := &mockOptimizer{}
			m.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, nil)
			return m
		}(),
		"panic": panickingOptimizer{},
	}

	for name, opt := range optimizers {
		t.Run(name, func(t *testing.T) {
			c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt))

			res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceBalanced))
			require.NoError(t, err)
			assert.Equal(t, "Bonjour le monde", res.Translation)
			assert.Equal(t, 0.6, res.QualityMetrics.OverallScore)
			assert.Equal(t, []string{"Hello world"}, res.ChunkingResult.Chunks)
			assert.False(t, res.OptimizationApplied)
			assert.NotContains(t, res.StageTimes, StageOptimization)

			stats := c.PerformanceStats(context.Background())
			assert.Equal(t, int64(1), stats.OptimizationsAttempted)
			assert.Equal(t, int64(1), stats.OptimizationFailures)
			assert.Equal(t, int64(0), stats.OptimizationsApplied)
		})
	}
}

func TestTranslate_StageTimesWithoutOptimization(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.9}))

	res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceBalanced))
	require.NoError(t, err)
	assert.Contains(t, res.StageTimes, StageSemanticTranslation)
	assert.Contains(t, res.StageTimes, StageQualityAssessment)
	assert.NotContains(t, res.StageTimes, StageOptimization)
	assert.False(t, res.CacheHit)
	assert.Equal(t, false, res.Metadata["cache_hit"])
	assert.NotEmpty(t, res.Metadata["request_id"])
}

func TestTranslate_ScenarioNoOptimizationNeeded(t *testing.T) {
	opt := &mockOptimizer{}
	mc := newCache()
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.85}), WithOptimizer(opt), WithCache(mc))

	res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceBalanced))
	require.NoError(t, err)

	assert.Equal(t, "Bonjour le monde", res.Translation)
	assert.False(t, res.OptimizationApplied)
	opt.AssertNotCalled(t, "OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	entry, err := mc.GetTranslation(context.Background(), "Hello world", "en", "fr", internal.LevelOptimized)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Bonjour le monde", entry.Translation)
}

func TestTranslate_ScenarioOptimizationApplied(t *testing.T) {
	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, optimizer.StrategyFor(internal.PreferenceBalanced)).
		Return(optimized("Bonjour, le monde", 0.9), nil)
	mc := newCache()
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt), WithCache(mc))

	res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceBalanced))
	require.NoError(t, err)

	assert.True(t, res.OptimizationApplied)
	assert.Equal(t, 0.9, res.QualityMetrics.OverallScore)
	assert.Equal(t, "Bonjour, le monde", res.Translation)
	assert.Contains(t, res.StageTimes, StageOptimization)
	assert.Equal(t, 120, res.Metadata["optimal_chunk_size"])
	opt.AssertExpectations(t)

	// the optimizer saw the semantic translation it was asked to improve
	semantic := opt.Calls[0].Arguments.Get(2).(*internal.TranslationResult)
	assert.Equal(t, "Bonjour le monde", semantic.Translation)
	assert.Equal(t, 0.6, semantic.QualityMetrics.OverallScore)

	entry, err := mc.GetTranslation(context.Background(), "Hello world", "en", "fr", internal.LevelOptimized)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Bonjour, le monde", entry.Translation)
}

func TestTranslate_LowScoreCachedAsSemantic(t *testing.T) {
	mc := newCache()
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.5}), WithCache(mc))

	_, err := c.Translate(context.Background(), helloRequest(internal.PreferenceFast))
	require.NoError(t, err)

	entry, err := mc.GetTranslation(context.Background(), "Hello world", "en", "fr", internal.LevelSemantic)
	require.NoError(t, err)
	require.NotNil(t, entry)
	_, marked := entry.QualityMetrics.Metadata[metaOptimizationAttempted]
	assert.False(t, marked)
}

func TestTranslate_BackendFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", boom)
	c := New(backend, WithAssessor(fixedAssessor{score: 0.9}), WithCache(newCache()))

	res, err := c.Translate(context.Background(), helloRequest(internal.PreferenceBalanced))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, translator.ErrBackendFailure)
	assert.ErrorIs(t, err, boom)

	var updates []internal.TranslationUpdate
	res, err = c.ProgressiveTranslate(context.Background(), helloRequest(internal.PreferenceBalanced), collect(&updates))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, translator.ErrBackendFailure)

	stats := c.PerformanceStats(context.Background())
	assert.Equal(t, int64(2), stats.BackendFailures)
	require.NotNil(t, stats.CacheStats)
	assert.Equal(t, int64(0), stats.CacheStats.Stores)
}

func TestTranslate_ChunkOrderPreserved(t *testing.T) {
	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat(string(rune('a'+i)), 40) + " " + strings.Repeat(string(rune('a'+i)), 40) + "."
	}
	text := strings.Join(paragraphs, "\n\n")

	backend := translator.BackendFunc(func(_ context.Context, chunk, _, _, _ string) (string, error) {
		return strings.ToUpper(chunk), nil
	})
	c := New(backend, WithAssessor(fixedAssessor{score: 0.9}), WithConfig(Config{ChunkConcurrency: 8}))

	res, err := c.Translate(context.Background(), helloRequestWith(text))
	require.NoError(t, err)
	assert.Equal(t, strings.ToUpper(text), res.Translation)
	assert.Greater(t, len(res.ChunkingResult.Chunks), 1)
}

func helloRequestWith(text string) internal.TranslationRequest {
	req := helloRequest(internal.PreferenceBalanced)
	req.Text = text
	return req
}

func TestPerformanceStats_Counters(t *testing.T) {
	opt := &mockOptimizer{}
	opt.On("OptimizeTranslation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(optimized("Bonjour, le monde", 0.9), nil)
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.6}), WithOptimizer(opt), WithCache(newCache()))

	req := helloRequest(internal.PreferenceBalanced)
	for i := 0; i < 3; i++ {
		_, err := c.Translate(context.Background(), req)
		require.NoError(t, err)
	}

	stats := c.PerformanceStats(context.Background())
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.CacheHits)
	assert.Equal(t, int64(1), stats.OptimizationsAttempted)
	assert.Equal(t, int64(1), stats.OptimizationsApplied)
	require.NotNil(t, stats.CacheStats)
	assert.Equal(t, "memory", stats.CacheStats.Backend)
	assert.Equal(t, int64(1), stats.CacheStats.Stores)
}

func TestTranslate_ConcurrentRequests(t *testing.T) {
	c := New(helloBackend(), WithAssessor(fixedAssessor{score: 0.9}), WithCache(newCache()))
	req := helloRequest(internal.PreferenceBalanced)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Translate(context.Background(), req)
			assert.NoError(t, err)
			if res != nil {
				assert.Equal(t, "Bonjour le monde", res.Translation)
			}
		}()
	}
	wg.Wait()

	stats := c.PerformanceStats(context.Background())
	assert.Equal(t, int64(25), stats.TotalRequests)
	assert.LessOrEqual(t, stats.CacheHits, int64(24))
}

func TestNew_DefaultsUseRealComponents(t *testing.T) {
	backend := translator.BackendFunc(func(_ context.Context, text, _, _, _ string) (string, error) {
		return "Bonjour le monde, comment allez-vous aujourd'hui?", nil
	})
	c := New(backend)

	res, err := c.Translate(context.Background(), internal.TranslationRequest{
		Text:           "Hello world, how are you today?",
		SourceLang:     "en",
		TargetLang:     "fr",
		UserPreference: internal.PreferenceFast,
	})
	require.NoError(t, err)
	assert.Greater(t, res.QualityMetrics.OverallScore, 0.0)
	assert.NotEmpty(t, res.QualityMetrics.DimensionScores)
	assert.Equal(t, internal.ContentShort, res.ChunkingResult.ContentType)
}
