// Package language guesses the natural language of resume text.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Languages most resumes in the wild are written in. Restricting the set
// keeps the detector's memory footprint small.
var defaultLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(defaultLanguages...).
		WithLowAccuracyMode().
		Build()

	return &Detector{detector: detector}
}

// Detect returns the English name of the detected language, or an empty
// string when the text is blank or ambiguous.
func (d *Detector) Detect(text string) string {
	if d == nil || d.detector == nil || strings.TrimSpace(text) == "" {
		return ""
	}

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}

	return lang.String()
}
