// Package language provides query/document language detection and
// text normalization shared by the lexical index and the query expander.
package language

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Language is an ISO 639-1 code.
type Language string

// Supported languages. Detection falls back to English.
const (
	Unknown    Language = ""
	English    Language = "en"
	Indonesian Language = "id"
	Japanese   Language = "ja"
	Korean     Language = "ko"
	Chinese    Language = "zh"
	Arabic     Language = "ar"
	Hindi      Language = "hi"
	Thai       Language = "th"
)

// IsValid reports whether the language is one of the supported codes.
func (l Language) IsValid() bool {
	switch l {
	case English, Indonesian, Japanese, Korean, Chinese, Arabic, Hindi, Thai:
		return true
	}
	return false
}

// indonesianMarkers are function words that identify Indonesian queries.
// Script ranges cannot help here: Indonesian uses the Latin alphabet.
var indonesianMarkers = map[string]bool{
	"apa": true, "bagaimana": true, "siapa": true, "dimana": true,
	"kapan": true, "mengapa": true, "adalah": true,
}

// Detect guesses the language of text. Non-Latin scripts are recognized
// by rune ranges; Latin text is checked against Indonesian marker words;
// everything else is reported as English.
func Detect(text string) Language {
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
			return Japanese
		case r >= 0xAC00 && r <= 0xD7AF: // hangul syllables
			return Korean
		case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
			return Chinese
		case r >= 0x0600 && r <= 0x06FF:
			return Arabic
		case r >= 0x0900 && r <= 0x097F: // devanagari
			return Hindi
		case r >= 0x0E00 && r <= 0x0E7F:
			return Thai
		}
	}

	for _, w := range strings.Fields(strings.ToLower(text)) {
		if indonesianMarkers[strings.Trim(w, ".,!?;:")] {
			return Indonesian
		}
	}
	return English
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold strips combining diacritical marks: "café" -> "cafe".
// Returns the input unchanged if the transform fails.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases, folds diacritics and collapses whitespace runs.
// Cache fingerprints and expansion rules both operate on normalized text.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(Fold(s))), " ")
}
