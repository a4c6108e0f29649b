// Package chunker splits texts into semantically coherent chunks sized for a
// translation backend. Splits are attempted (in order of preference) at:
//  1. Paragraph boundaries (blank line)
//  2. Line breaks
//  3. Sentence-ending punctuation
//  4. Whitespace (word boundary)
//  5. Hard cut at the size limit if no suitable boundary is found
//
// Every chunk carries its byte span in the original text so translated chunks
// can be reassembled with the original separators.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/adaptran/internal"
)

const (
	DefaultMinChunkSize = 50
	DefaultMaxChunkSize = 2000
)

// Config bounds the chunk sizes (in unicode code points) the chunker emits.
type Config struct {
	MinChunkSize int `mapstructure:"min_chunk_size"`
	MaxChunkSize int `mapstructure:"max_chunk_size"`
}

func DefaultConfig() Config {
	return Config{MinChunkSize: DefaultMinChunkSize, MaxChunkSize: DefaultMaxChunkSize}
}

type SemanticChunker struct {
	cfg Config
}

func New(cfg Config) *SemanticChunker {
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.MaxChunkSize < cfg.MinChunkSize {
		cfg.MaxChunkSize = DefaultMaxChunkSize
		if cfg.MaxChunkSize < cfg.MinChunkSize {
			cfg.MaxChunkSize = cfg.MinChunkSize
		}
	}
	return &SemanticChunker{cfg: cfg}
}

// Bounds returns the effective minimum and maximum chunk size.
func (c *SemanticChunker) Bounds() (int, int) {
	return c.cfg.MinChunkSize, c.cfg.MaxChunkSize
}

// ChunkText classifies req.Text, estimates the optimal chunk size for its
// content type and partitions the text at that size. A text shorter than the
// minimum chunk size is returned as a single chunk with coherence 1.0.
func (c *SemanticChunker) ChunkText(req internal.TranslationRequest) internal.ChunkingResult {
	text := req.Text
	contentType := c.Classify(text)

	if contentType == internal.ContentShort {
		estimate := utf8.RuneCountInString(text)
		if estimate < 1 {
			estimate = 1
		}
		return internal.ChunkingResult{
			Chunks:              []string{text},
			Offsets:             []internal.Span{{Start: 0, End: len(text)}},
			ContentType:         contentType,
			CoherenceScore:      1.0,
			OptimalSizeEstimate: estimate,
			Metadata: map[string]any{
				"chunk_count":    1,
				"boundary_kinds": map[string]int{},
				"forced_splits":  0,
			},
		}
	}

	return c.partition(text, c.EstimateSize(contentType), contentType)
}

// ChunkAtSize partitions text at an explicit chunk size, clamped to the
// configured bounds.
func (c *SemanticChunker) ChunkAtSize(text string, size int) internal.ChunkingResult {
	return c.partition(text, c.clamp(size), c.Classify(text))
}

func (c *SemanticChunker) partition(text string, size int, contentType internal.ContentType) internal.ChunkingResult {
	spans, kinds := split(text, size)

	chunks := make([]string, len(spans))
	for i, sp := range spans {
		chunks[i] = text[sp.Start:sp.End]
	}

	counts := make(map[string]int)
	forced := 0
	for _, k := range kinds {
		counts[k.String()]++
		if k == boundaryHard {
			forced++
		}
	}

	return internal.ChunkingResult{
		Chunks:              chunks,
		Offsets:             spans,
		ContentType:         contentType,
		CoherenceScore:      coherence(kinds),
		OptimalSizeEstimate: size,
		Metadata: map[string]any{
			"chunk_count":    len(chunks),
			"boundary_kinds": counts,
			"forced_splits":  forced,
		},
	}
}

func (c *SemanticChunker) clamp(size int) int {
	if size < c.cfg.MinChunkSize {
		return c.cfg.MinChunkSize
	}
	if size > c.cfg.MaxChunkSize {
		return c.cfg.MaxChunkSize
	}
	return size
}

type boundary int

const (
	boundaryParagraph boundary = iota
	boundaryLine
	boundarySentence
	boundaryWord
	boundaryHard
)

func (b boundary) String() string {
	switch b {
	case boundaryParagraph:
		return "paragraph"
	case boundaryLine:
		return "line"
	case boundarySentence:
		return "sentence"
	case boundaryWord:
		return "word"
	default:
		return "hard"
	}
}

func (b boundary) weight() float64 {
	switch b {
	case boundaryParagraph:
		return 1.0
	case boundaryLine:
		return 0.95
	case boundarySentence:
		return 0.9
	case boundaryWord:
		return 0.6
	default:
		return 0.2
	}
}

func coherence(kinds []boundary) float64 {
	if len(kinds) == 0 {
		return 1.0
	}
	var sum float64
	for _, k := range kinds {
		sum += k.weight()
	}
	return sum / float64(len(kinds))
}

// split partitions text into spans of at most maxRunes code points. Leading
// and trailing whitespace is excluded from every span. kinds[i] is the
// boundary between spans[i] and spans[i+1].
func split(text string, maxRunes int) ([]internal.Span, []boundary) {
	var spans []internal.Span
	var kinds []boundary
	if maxRunes < 1 {
		maxRunes = 1
	}

	pos := skipSpace(text, 0)
	for pos < len(text) {
		rest := text[pos:]
		limit := runeOffset(rest, maxRunes)
		if limit >= len(rest) {
			end := pos + len(strings.TrimRightFunc(rest, unicode.IsSpace))
			spans = append(spans, internal.Span{Start: pos, End: end})
			break
		}

		cut, kind := findSplit(rest, limit)
		end := pos + len(strings.TrimRightFunc(rest[:cut], unicode.IsSpace))
		if end > pos {
			spans = append(spans, internal.Span{Start: pos, End: end})
			kinds = append(kinds, kind)
		}
		pos = skipSpace(text, pos+cut)
	}

	if len(spans) == 0 {
		return nil, nil
	}
	if len(kinds) > len(spans)-1 {
		kinds = kinds[:len(spans)-1]
	}
	return spans, kinds
}

// findSplit returns the byte index within text at which to cut, given that
// text[:limit] holds exactly the allowed number of runes. Boundaries in the
// second half of the window are preferred so chunks stay close to the target
// size; the whole window is searched only when the second half has none.
func findSplit(text string, limit int) (int, boundary) {
	window := text[:limit]
	for _, floor := range []int{limit / 2, 1} {
		if idx := lastParagraph(window); idx >= floor {
			return idx, boundaryParagraph
		}
		if idx := strings.LastIndexByte(window, '\n'); idx >= floor {
			return idx, boundaryLine
		}
		if idx := lastSentenceEnd(text, limit); idx >= floor {
			return idx, boundarySentence
		}
		if idx := lastSpace(window); idx >= floor {
			return idx, boundaryWord
		}
	}
	return limit, boundaryHard
}

func lastParagraph(s string) int {
	idx := strings.LastIndex(s, "\n\n")
	if crlf := strings.LastIndex(s, "\r\n\r\n"); crlf > idx {
		idx = crlf
	}
	return idx
}

// lastSentenceEnd returns the byte index just past the last sentence-ending
// punctuation in text[:limit]. Latin terminators must be followed by
// whitespace; CJK terminators need not be.
func lastSentenceEnd(text string, limit int) int {
	for i := limit; i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		switch r {
		case '。', '！', '？':
			return i
		case '.', '!', '?', '…':
			if i < len(text) {
				next, _ := utf8.DecodeRuneInString(text[i:])
				if unicode.IsSpace(next) {
					return i
				}
			}
		}
		i -= size
	}
	return -1
}

func lastSpace(s string) int {
	return strings.LastIndexFunc(s, unicode.IsSpace)
}

// runeOffset returns the byte offset just past the first n runes of s, or
// len(s) when s is shorter.
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

func skipSpace(s string, from int) int {
	for from < len(s) {
		r, size := utf8.DecodeRuneInString(s[from:])
		if !unicode.IsSpace(r) {
			break
		}
		from += size
	}
	return from
}
