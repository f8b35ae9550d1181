// Package reference parses free-form bibliographic reference strings into
// structured values.
//
// Real-world footnotes are inconsistently punctuated ("Tanya ch. 32",
// "Likkutei Sichos vol. 28, p. 33", "Berachos 45a", "תניא פרק לב"), so
// parsing happens in two layers: Parse splits a string into a book-name
// candidate and a raw reference token using ordered structural patterns,
// and ParseLocator turns the token into numeric volume/chapter/page fields.
package reference

import (
	"regexp"
	"strings"
)

// ParsedReference is the result of splitting a citation string. BookName is
// never empty for non-empty input: when no structural pattern matches, the
// entire trimmed input becomes the book-name candidate.
type ParsedReference struct {
	// BookName is the candidate book/work name.
	BookName string
	// ReferenceRaw is the raw chapter/page/volume substring, including its
	// marker ("ch. 32", "vol. 28, p. 33"). Empty when the input carried no
	// recognizable reference portion.
	ReferenceRaw string
	// Original is the input text, trimmed.
	Original string
}

// HasReference reports whether a reference portion was captured.
func (p ParsedReference) HasReference() bool {
	return p.ReferenceRaw != ""
}

// Structural patterns, ordered most- to least-specific so a loose pattern
// cannot shadow a stricter one. Each captures (name, reference).
var (
	// "Name, ch. 32" / "Name ch. 32" / "Name, vol. 5, p. 12" — an English
	// marker word followed by digits, comma optional.
	markerPattern = regexp.MustCompile(`(?i)^(.+?),?\s+((?:chapters?|chap|ch|volumes?|vol|pages?|pp|p)\.?\s*\d.*)$`)

	// "Name vol. 28" with an optional page tail — volume-first form.
	volumePattern = regexp.MustCompile(`(?i)^(.+?)\s+((?:volumes?|vol)\.?\s*\d+(?:\s*,\s*(?:pages?|pp|p)\.?\s*\d+(?:\s*[-–]\s*\d+)?)?)$`)

	// "שם פרק לב" — Hebrew marker followed by a Hebrew numeral or digits.
	hebrewMarkerPattern = regexp.MustCompile(`^(.+?)\s+((?:פרק|חלק|עמ|דף)['׳]?\s*\S+)$`)

	// "Name 45a" — folio-style single number, optional side letter.
	folioPattern = regexp.MustCompile(`^(.+?)\s+(\d+[ab]?)$`)
)

var structuralPatterns = []*regexp.Regexp{
	markerPattern,
	volumePattern,
	hebrewMarkerPattern,
	folioPattern,
}

// Parse splits a citation string into a book-name candidate and an optional
// raw reference token. It never fails: input that matches no pattern is
// returned whole as the book-name candidate.
func Parse(text string) ParsedReference {
	trimmed := strings.TrimSpace(text)
	parsed := ParsedReference{
		BookName: trimmed,
		Original: trimmed,
	}
	if trimmed == "" {
		return parsed
	}

	for _, pattern := range structuralPatterns {
		m := pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ","))
		if name == "" {
			continue
		}
		parsed.BookName = name
		parsed.ReferenceRaw = strings.TrimSpace(m[2])
		return parsed
	}

	return parsed
}
