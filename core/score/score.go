// Package score ranks catalog candidates against a parsed citation and
// produces a 0-100 confidence with a match classification.
//
// Book identity is a hard gate: a candidate whose title does not match the
// query's book-name candidate scores zero no matter how well its reference
// text lines up. The reference portion only refines an already-plausible
// book match. This keeps bulk auto-linking from attaching footnotes to the
// wrong work on the strength of a shared page number.
package score

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/gematria"
	"github.com/otzaria/mekor/core/match"
	"github.com/otzaria/mekor/core/reference"
)

// DefaultMinConfidence is the threshold below which no match is returned.
const DefaultMinConfidence = 50

// MatchType classifies a confidence score.
type MatchType string

const (
	// MatchExact is confidence >= 90.
	MatchExact MatchType = "exact"
	// MatchFuzzy is confidence >= 70.
	MatchFuzzy MatchType = "fuzzy"
	// MatchPartial is anything below fuzzy.
	MatchPartial MatchType = "partial"
)

// Classify maps a confidence score to its match type. The mapping is the
// single authority; CitationMatch.MatchType is always derived through it.
func Classify(confidence int) MatchType {
	switch {
	case confidence >= 90:
		return MatchExact
	case confidence >= 70:
		return MatchFuzzy
	default:
		return MatchPartial
	}
}

// Candidate is one catalog entry offered for matching.
type Candidate struct {
	// Source is the catalog node.
	Source catalog.SourceNode
	// Reference is the candidate's own reference text ("ch. 32"), empty
	// when the node carries none.
	Reference string
}

// CitationMatch is a successful fuzzy match.
type CitationMatch struct {
	Source     catalog.SourceNode `json:"source"`
	Confidence int                `json:"confidence"`
	MatchType  MatchType          `json:"match_type"`
}

// Book-name contribution by match branch.
const (
	bookExactPoints     = 60
	bookSubstringPoints = 50
	bookAliasPoints     = 40
)

// Reference contribution.
const (
	refExactPoints       = 40
	refSubstringPoints   = 25
	refNumericPoints     = 15
	refUnconfirmedPoints = 20
)

// ScoreMatch scores candidate against ref: up to 60 points for the book
// name, up to 40 for the reference portion. A zero book-name match
// short-circuits to 0.
func ScoreMatch(candidate Candidate, ref reference.ParsedReference) int {
	var bookPoints int
	switch match.Match(ref.BookName, candidate.Source.Title) {
	case match.Exact:
		bookPoints = bookExactPoints
	case match.Substring:
		bookPoints = bookSubstringPoints
	case match.Alias:
		bookPoints = bookAliasPoints
	default:
		return 0
	}

	return bookPoints + referencePoints(candidate.Reference, ref)
}

func referencePoints(candidateRef string, ref reference.ParsedReference) int {
	if !ref.HasReference() {
		if candidateRef != "" {
			// Plausibly valid, unconfirmed: the catalog entry is more
			// specific than the query.
			return refUnconfirmedPoints
		}
		return 0
	}
	if candidateRef == "" {
		return 0
	}

	q := match.Normalize(ref.ReferenceRaw)
	c := match.Normalize(candidateRef)
	if q == c {
		return refExactPoints
	}
	if strings.Contains(q, c) || strings.Contains(c, q) {
		return refSubstringPoints
	}
	if numericOverlap(q, c) {
		return refNumericPoints
	}
	return 0
}

var digitRun = regexp.MustCompile(`\d+`)
var hebrewRun = regexp.MustCompile(`[\p{Hebrew}]+`)

// numericOverlap reports whether the two reference strings share any
// numeric token, counting Hebrew numeral runs by their gematria value.
func numericOverlap(a, b string) bool {
	av := numericTokens(a)
	if len(av) == 0 {
		return false
	}
	for n := range numericTokens(b) {
		if av[n] {
			return true
		}
	}
	return false
}

func numericTokens(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, d := range digitRun.FindAllString(s, -1) {
		tokens[strings.TrimLeft(d, "0")] = true
	}
	for _, h := range hebrewRun.FindAllString(s, -1) {
		if v := gematria.ToInt(h); v > 0 {
			tokens[strconv.Itoa(v)] = true
		}
	}
	return tokens
}

// FuzzyMatchCitation parses text once, scores every candidate, and returns
// the best-scoring one when it meets minConfidence. Ties keep the earlier
// candidate: the sort is stable and candidates are scored in input order,
// so results are deterministic. minConfidence <= 0 selects
// DefaultMinConfidence. Returns nil when nothing qualifies.
func FuzzyMatchCitation(text string, candidates []Candidate, minConfidence int) *CitationMatch {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	parsed := reference.Parse(text)
	if parsed.BookName == "" {
		return nil
	}

	type scored struct {
		candidate Candidate
		points    int
	}
	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, scored{candidate: c, points: ScoreMatch(c, parsed)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].points > results[j].points
	})

	if len(results) == 0 || results[0].points < minConfidence {
		return nil
	}

	best := results[0]
	return &CitationMatch{
		Source:     best.candidate.Source,
		Confidence: best.points,
		MatchType:  Classify(best.points),
	}
}
