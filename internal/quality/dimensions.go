package quality

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/valpere/adaptran/internal/placeholder"
	"github.com/valpere/adaptran/internal/postprocess"
)

// Acceptable translated/original rune ratio.
const (
	minLengthRatio = 0.6
	maxLengthRatio = 1.8
)

// untranslatedMinRunes is the source length above which output nearly
// identical to the input is treated as untranslated.
const untranslatedMinRunes = 20

var digitsRe = regexp.MustCompile(`\p{Nd}+`)

// scoreModelConfidence penalises output that shows signs of a misbehaving
// backend: LLM preambles or thinking blocks, and decoding damage.
func scoreModelConfidence(translated string) float64 {
	trimmed := strings.TrimSpace(translated)
	if trimmed == "" {
		return 0
	}
	score := 1.0
	if postprocess.HasArtifacts(trimmed) {
		score -= 0.4
	}
	if strings.ContainsRune(trimmed, utf8.RuneError) {
		score -= 0.3
	}
	if !utf8.ValidString(trimmed) {
		score -= 0.3
	}
	return clamp01(score)
}

// scoreFluency checks that sentence structure survived and that the output
// does not stutter.
func scoreFluency(original, translated string) float64 {
	tokens := strings.Fields(translated)
	if len(tokens) == 0 {
		return 0
	}
	score := 1.0

	if endsSentence(original) && !endsSentence(translated) {
		score -= 0.15
	}

	so, st := countSentences(original), countSentences(translated)
	if so < 1 {
		so = 1
	}
	if st < 1 {
		st = 1
	}
	balance := float64(min(so, st)) / float64(max(so, st))
	score -= 0.2 * (1 - balance)

	repeats := 0
	for i := 1; i < len(tokens); i++ {
		if strings.EqualFold(tokens[i], tokens[i-1]) {
			repeats++
		}
	}
	score -= 2.5 * float64(repeats) / float64(len(tokens))

	return clamp01(score)
}

func scoreLengthRatio(original, translated string) float64 {
	lo := utf8.RuneCountInString(strings.TrimSpace(original))
	lt := utf8.RuneCountInString(strings.TrimSpace(translated))
	if lt == 0 {
		if lo == 0 {
			return 1
		}
		return 0
	}
	if lo == 0 {
		return 0
	}

	ratio := float64(lt) / float64(lo)
	switch {
	case ratio < minLengthRatio:
		return clamp01(ratio / minLengthRatio)
	case ratio > maxLengthRatio:
		return clamp01(1 - (ratio-maxLengthRatio)/maxLengthRatio)
	default:
		return 1
	}
}

// scoreSemanticPreservation is a proxy for meaning preservation: numbers and
// protected markup must carry over, and long inputs must actually change.
func scoreSemanticPreservation(original, translated string) float64 {
	if strings.TrimSpace(translated) == "" {
		return 0
	}

	digits := 1.0
	if nums := digitsRe.FindAllString(original, -1); len(nums) > 0 {
		found := 0
		for _, n := range nums {
			if strings.Contains(translated, n) {
				found++
			}
		}
		digits = float64(found) / float64(len(nums))
	}

	markup := 1.0
	if mo := placeholder.CountMarkup(original); mo > 0 {
		diff := mo - placeholder.CountMarkup(translated)
		if diff < 0 {
			diff = -diff
		}
		markup = clamp01(1 - float64(diff)/float64(mo))
	}

	score := 0.5*digits + 0.5*markup
	if utf8.RuneCountInString(original) > untranslatedMinRunes &&
		similarity(sample(original), sample(translated)) >= 0.9 {
		score *= 0.3
	}
	return clamp01(score)
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, " \t\r\n\"'»”’)")
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(".!?…。！？", r)
}

func countSentences(s string) int {
	n := 0
	prevTerm := false
	for _, r := range s {
		term := strings.ContainsRune(".!?…。！？", r)
		if term && !prevTerm {
			n++
		}
		prevTerm = term
	}
	return n
}
