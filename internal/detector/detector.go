// Package detector wraps lingua-go for language identification of source
// texts and translation output.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detector is safe for concurrent use. Building one loads language models,
// so callers should share a single instance.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all languages lingua supports.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewForCodes builds a detector restricted to the given ISO 639-1 codes.
// Unknown codes are ignored; fewer than two known codes falls back to New.
func NewForCodes(codes ...string) *Detector {
	var langs []lingua.Language
	for _, c := range codes {
		if lang, ok := LanguageForCode(c); ok {
			langs = append(langs, lang)
		}
	}
	if len(langs) < 2 {
		return New()
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// Confidence returns lingua's confidence in [0,1] that text is written in the
// language identified by code. ok is false when code is not a known
// ISO 639-1 code or text is empty.
func (d *Detector) Confidence(text, code string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	lang, ok := LanguageForCode(code)
	if !ok {
		return 0, false
	}
	return d.detector.ComputeLanguageConfidence(text, lang), true
}

// LanguageForCode maps an ISO 639-1 code such as "fr" or "FR" (optionally
// with a region suffix, "pt-BR") to a lingua language.
func LanguageForCode(code string) (lingua.Language, bool) {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if code == "" {
		return lingua.Unknown, false
	}
	iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(code))
	if iso == lingua.UnknownIsoCode639_1 {
		return lingua.Unknown, false
	}
	lang := lingua.GetLanguageFromIsoCode639_1(iso)
	return lang, lang != lingua.Unknown
}
