package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/adaptran/internal"
)

// Base chunk sizes per content type, before clamping to the configured bounds.
var baseSizes = map[internal.ContentType]int{
	internal.ContentConversational: 300,
	internal.ContentNarrative:      800,
	internal.ContentTechnical:      500,
	internal.ContentMixed:          600,
}

// speakerRe matches "Name:" prefixes used in transcripts and chat logs.
var speakerRe = regexp.MustCompile(`^\p{Lu}[\p{L}\p{N} ._-]{0,24}:\s`)

const codeSymbols = "{}[]<>=;_/\\|#`$*&%"

// Classify derives a content type from structural cues: length, dialogue
// markers, punctuation density and code-like symbols.
func (c *SemanticChunker) Classify(text string) internal.ContentType {
	runes := utf8.RuneCountInString(text)
	if runes < c.cfg.MinChunkSize {
		return internal.ContentShort
	}

	var lines, dialogue int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines++
		if isDialogueLine(line) {
			dialogue++
		}
	}

	var symbols, sentences, questions int
	for _, r := range text {
		switch {
		case strings.ContainsRune(codeSymbols, r) || unicode.IsDigit(r):
			symbols++
		case r == '?' || r == '!' || r == '？' || r == '！':
			questions++
			sentences++
		case r == '.' || r == '。' || r == '…':
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	symbolDensity := float64(symbols) / float64(runes)
	dialogueRatio := 0.0
	if lines > 0 {
		dialogueRatio = float64(dialogue) / float64(lines)
	}
	questionRatio := float64(questions) / float64(sentences)
	avgSentence := float64(runes) / float64(sentences)

	switch {
	case symbolDensity > 0.08:
		return internal.ContentTechnical
	case dialogueRatio >= 0.3 || (questionRatio >= 0.3 && avgSentence < 60):
		return internal.ContentConversational
	case avgSentence >= 40 && dialogueRatio < 0.1:
		return internal.ContentNarrative
	default:
		return internal.ContentMixed
	}
}

// EstimateSize returns the chunk size the chunker targets for contentType.
func (c *SemanticChunker) EstimateSize(contentType internal.ContentType) int {
	size, ok := baseSizes[contentType]
	if !ok {
		size = baseSizes[internal.ContentMixed]
	}
	return c.clamp(size)
}

func isDialogueLine(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	switch r {
	case '"', '\'', '“', '«', '„', '‘', '-', '–', '—', '「':
		return true
	}
	return speakerRe.MatchString(line)
}
