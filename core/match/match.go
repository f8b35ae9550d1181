// Package match compares candidate book names against canonical titles and
// known variant spellings.
//
// Classical works circulate under many transliterations ("Likkutei Sichos",
// "Likutei Sichot") and alternate names ("Tanya" for "Likkutei Amarim"), so
// matching proceeds in priority order: exact normalized equality, substring
// containment, then shared membership in a curated alias group. Exact wins
// for precision; the alias table buys recall without loosening the first
// two branches.
package match

import (
	"strings"
)

// Kind classifies how a query matched a candidate title.
type Kind int

const (
	// None means the names do not match.
	None Kind = iota
	// Alias means both names belong to the same alias group.
	Alias
	// Substring means one normalized name contains the other.
	Substring
	// Exact means the normalized names are equal.
	Exact
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	case Alias:
		return "alias"
	}
	return "none"
}

// aliasGroups is the static registry of known variant spellings. Each row
// is one work; extending coverage means adding a row, no code changes.
var aliasGroups = [][]string{
	{"tanya", "likkutei amarim", "likutei amarim", "sefer shel beinonim", "תניא", "לקוטי אמרים"},
	{"likkutei sichos", "likutei sichos", "likkutei sichot", "likutei sichot", "lekutei sichos", "לקוטי שיחות"},
	{"likkutei torah", "likutei torah", "לקוטי תורה"},
	{"torah or", "torah ohr", "תורה אור"},
	{"tehillim", "psalms", "sefer tehillim", "תהלים", "תהילים"},
	{"shulchan aruch harav", "shulchan oruch harav", "alter rebbes shulchan aruch", "שולחן ערוך הרב"},
	{"derech mitzvosecha", "derech mitzvoseha", "sefer hamitzvos tzemach tzedek", "דרך מצותיך"},
	{"tanach", "tanakh", "bible", "תנך"},
	{"zohar", "sefer hazohar", "זהר", "זוהר"},
	{"igros kodesh", "igrot kodesh", "אגרות קודש"},
	{"hayom yom", "sefer hayom yom", "היום יום"},
	{"berachos", "berachot", "brachos", "ברכות"},
	{"shabbos", "shabbat", "שבת"},
	{"sanhedrin", "סנהדרין"},
}

// aliasIndex maps each normalized alias to its group row.
var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]int {
	index := make(map[string]int)
	for i, group := range aliasGroups {
		for _, name := range group {
			index[Normalize(name)] = i
		}
	}
	return index
}

// Normalize lowercases a name, strips periods, commas, quote characters and
// geresh marks, and collapses runs of whitespace to single spaces.
func Normalize(name string) string {
	lowered := strings.ToLower(name)
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'', '"', '`', '׳', '״', '‘', '’', '“', '”':
			return -1
		}
		return r
	}, lowered)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Match classifies how query matches candidate. Both arguments are raw
// names; normalization happens here.
func Match(query, candidate string) Kind {
	q := Normalize(query)
	c := Normalize(candidate)
	if q == "" || c == "" {
		return None
	}

	if q == c {
		return Exact
	}
	if strings.Contains(q, c) || strings.Contains(c, q) {
		return Substring
	}

	qGroup, qOK := aliasIndex[q]
	cGroup, cOK := aliasIndex[c]
	if qOK && cOK && qGroup == cGroup {
		return Alias
	}
	return None
}

// MatchesBookName reports whether query and candidate name the same work
// under any branch of Match.
func MatchesBookName(query, candidate string) bool {
	return Match(query, candidate) != None
}
