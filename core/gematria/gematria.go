// Package gematria converts between Hebrew alphabetic numerals and integers.
//
// Hebrew numerals assign values to letters (א=1 … י=10 … ק=100 …) and form
// compound values by summing letters left to right, e.g. כח = 20+8 = 28.
// Printed forms often carry geresh (׳) or gershayim (״) marks, e.g. כ״ח;
// these are stripped before decomposition.
package gematria

import (
	"strings"
)

// letterValues maps each Hebrew letter to its numeric value. Final forms
// (ך ם ן ף ץ) carry the same value as their regular forms.
var letterValues = map[rune]int{
	'א': 1, 'ב': 2, 'ג': 3, 'ד': 4, 'ה': 5,
	'ו': 6, 'ז': 7, 'ח': 8, 'ט': 9,
	'י': 10, 'כ': 20, 'ך': 20, 'ל': 30,
	'מ': 40, 'ם': 40, 'נ': 50, 'ן': 50,
	'ס': 60, 'ע': 70, 'פ': 80, 'ף': 80, 'צ': 90, 'ץ': 90,
	'ק': 100, 'ר': 200, 'ש': 300, 'ת': 400,
}

// ones and tens drive integer-to-numeral construction.
var ones = []string{"", "א", "ב", "ג", "ד", "ה", "ו", "ז", "ח", "ט"}
var tens = []string{"", "י", "כ", "ל", "מ", "נ", "ס", "ע", "פ", "צ"}
var hundreds = []string{"", "ק", "ר", "ש", "ת"}

// punctuation marks stripped before decomposition: geresh, gershayim, and
// the ASCII quote characters commonly typed in their place.
const numeralMarks = "׳״'\"`‘’“”."

// ToInt converts a Hebrew numeral string to its integer value by summing
// the values of recognized Hebrew letters after stripping geresh/gershayim
// punctuation. Unrecognized characters are ignored. Returns 0 when no
// recognized letter is present; callers must treat 0 as "not a numeral",
// never as a valid value.
func ToInt(symbols string) int {
	cleaned := stripMarks(symbols)

	total := 0
	for _, r := range cleaned {
		if v, ok := letterValues[r]; ok {
			total += v
		}
	}
	return total
}

// FromInt converts an integer to its canonical Hebrew numeral string.
// Supported range is 1-499, which covers every volume, chapter, and
// sub-item ordinal in the catalog domain. Returns false for values
// outside the range.
//
// The combinations 10+5 and 10+6 are written טו and טז by convention,
// never יה or יו.
func FromInt(value int) (string, bool) {
	if value < 1 || value > 499 {
		return "", false
	}

	var sb strings.Builder
	h := value / 100
	rest := value % 100

	sb.WriteString(hundreds[h])

	switch rest {
	case 15:
		sb.WriteString("טו")
	case 16:
		sb.WriteString("טז")
	default:
		sb.WriteString(tens[rest/10])
		sb.WriteString(ones[rest%10])
	}

	return sb.String(), true
}

// TrailingValue extracts a trailing run of Hebrew letters from s (ignoring
// surrounding whitespace and geresh marks) and converts it to an integer.
// Used when volume metadata is absent and the volume number must be read
// off the end of a title like "לקוטי שיחות חלק כח".
//
// A title that legitimately ends in a Hebrew letter (e.g. one ending in
// ־ה) is indistinguishable from a one-letter numeral here; callers should
// only consult this in numeral-extraction contexts, never for book-name
// matching.
func TrailingValue(s string) (int, bool) {
	trimmed := strings.TrimRight(stripMarks(s), " \t")
	if trimmed == "" {
		return 0, false
	}

	runes := []rune(trimmed)
	end := len(runes)
	start := end
	for start > 0 {
		if _, ok := letterValues[runes[start-1]]; !ok {
			break
		}
		start--
	}
	if start == end {
		return 0, false
	}
	// A trailing run that is the entire string is a bare Hebrew title,
	// not a numeral suffix.
	if start == 0 {
		return 0, false
	}
	// The run must be preceded by a separator to count as a suffix.
	if runes[start-1] != ' ' && runes[start-1] != '\t' && runes[start-1] != '(' {
		return 0, false
	}

	v := ToInt(string(runes[start:end]))
	if v == 0 {
		return 0, false
	}
	return v, true
}

func stripMarks(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(numeralMarks, r) {
			return -1
		}
		return r
	}, s)
}
