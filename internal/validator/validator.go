// Package validator checks that translation output is written in the
// expected target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/adaptran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// neutralScore is returned when detection cannot say anything useful.
const neutralScore = 0.75

// Validator checks and scores translation output against a target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// NewWithDetector shares an existing detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	if !strings.EqualFold(detected, baseCode(targetLang)) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// Score rates in [0,1] how plausibly translatedText is written in targetLang.
// Empty output scores 0. Short texts, unknown codes and an empty targetLang
// score neutralScore.
func (v *Validator) Score(translatedText, targetLang string) float64 {
	text := strings.TrimSpace(translatedText)
	if text == "" {
		return 0
	}
	if targetLang == "" || len([]rune(text)) < minValidationLength {
		return neutralScore
	}

	conf, ok := v.det.Confidence(text, targetLang)
	if !ok {
		return neutralScore
	}
	if detected, ok := v.det.DetectISO(text); ok && strings.EqualFold(detected, baseCode(targetLang)) && conf < neutralScore {
		// lingua spreads confidence over related languages; a top-ranked
		// match is good enough.
		conf = neutralScore
	}
	return conf
}

func baseCode(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}
