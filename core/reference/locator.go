package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/otzaria/mekor/core/errors"
	"github.com/otzaria/mekor/core/gematria"
)

// Locator is the numeric form of a reference token: the coordinates a
// resolver needs to walk a source hierarchy.
type Locator struct {
	Volume  *int `json:"volume,omitempty"`
	Chapter *int `json:"chapter,omitempty"`
	Page    *int `json:"page,omitempty"`
	PageEnd *int `json:"page_end,omitempty"`
	// Folio is the side letter of a folio-style page ("a" or "b"),
	// empty otherwise.
	Folio string `json:"folio,omitempty"`
}

// locatorExpr is the participle grammar for reference tokens.
// Examples: "ch. 32", "vol. 28, p. 33-39", "45a", "פרק לב", "חלק כח".
type locatorExpr struct {
	Parts []locatorPart `parser:"@@ ( ','? @@ )*"`
}

type locatorPart struct {
	Marker string `parser:"@Marker?"`
	Value  string `parser:"@(Number | Hebrew)"`
	Side   string `parser:"@Side?"`
	End    string `parser:"( Dash @Number )?"`
}

// locatorLexer tokenizes reference tokens. Marker must precede Hebrew so
// that פרק/חלק lex as markers rather than as numeral letters.
var locatorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Marker", Pattern: `(?i)(?:chapters?|chap|ch|volumes?|vol|pages?|pp|p|פרק|חלק|עמ|דף)['׳]?\.?`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Side", Pattern: `[ab]\b`},
	{Name: "Hebrew", Pattern: `[\p{Hebrew}׳״'"]+`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Dash", Pattern: `[-–]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var locatorParser = participle.MustBuild[locatorExpr](
	participle.Lexer(locatorLexer),
	participle.Elide("Whitespace"),
)

// ParseLocator parses a raw reference token (as captured by Parse) into a
// Locator. Hebrew numeral values are converted via gematria; a value with
// no recognized numeral letters is an error wrapping ErrInvalidInput, and
// the caller decides whether to retry with a plain numeric reading.
func ParseLocator(token string) (Locator, error) {
	var loc Locator

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return loc, errors.NewValidation("reference", "empty reference token")
	}

	expr, err := locatorParser.ParseString("", trimmed)
	if err != nil {
		return loc, fmt.Errorf("unparseable reference %q: %w", token, errors.ErrInvalidInput)
	}

	for _, part := range expr.Parts {
		value, err := partValue(part.Value)
		if err != nil {
			return Locator{}, err
		}

		switch markerKind(part.Marker) {
		case "chapter":
			loc.Chapter = &value
		case "volume":
			loc.Volume = &value
		case "page":
			loc.Page = &value
		default:
			// Unmarked number: folio-style page.
			loc.Page = &value
		}

		if part.Side != "" {
			loc.Folio = part.Side
		}
		if part.End != "" {
			end, err := strconv.Atoi(part.End)
			if err == nil {
				loc.PageEnd = &end
			}
		}
	}

	return loc, nil
}

func partValue(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	if v := gematria.ToInt(raw); v > 0 {
		return v, nil
	}
	return 0, fmt.Errorf("unrecognized numeral %q: %w", raw, errors.ErrInvalidInput)
}

// markerKind normalizes a marker token to its coordinate kind.
func markerKind(marker string) string {
	m := strings.ToLower(strings.TrimRight(marker, ".'׳"))
	switch m {
	case "ch", "chap", "chapter", "chapters", "פרק":
		return "chapter"
	case "vol", "volume", "volumes", "חלק":
		return "volume"
	case "p", "pp", "page", "pages", "עמ", "דף":
		return "page"
	}
	return ""
}
