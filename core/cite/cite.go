// Package cite renders resolved catalog sources as canonical scholarly
// citation strings.
//
// Different classical works carry different citation conventions, so
// formatting branches on a per-root rule registry: a multi-volume
// discourse collection cites as "Likkutei Sichos, vol. 28, pp. 33-39
// (Nasso 1)", while an unregistered work falls back to its title plus a
// page suffix. The concatenation order of the full string is fixed —
// name, volume, pages, parenthesized section — and every field of the
// structured result feeds it; the full string is never authored
// separately.
package cite

import (
	"fmt"
	"strings"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/gematria"
	"github.com/otzaria/mekor/core/match"
)

// FormattedCitation is the structured rendering of a resolved source.
// Full is the deterministic concatenation of the remaining fields.
type FormattedCitation struct {
	Full       string `json:"full"`
	SourceName string `json:"source_name"`
	Volume     string `json:"volume,omitempty"`
	Pages      string `json:"pages,omitempty"`
	Section    string `json:"section,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Rule describes how sources under one root are cited.
type Rule struct {
	// SourceName is the canonical name used in citations.
	SourceName string
	// VolumePaged marks multi-volume collections cited by volume and page
	// with a transliterated section label.
	VolumePaged bool
}

// Input carries the resolved nodes a citation is built from. Root and
// Volume are optional context; Leaf alone suffices for the default branch.
type Input struct {
	RootID string
	Root   *catalog.SourceNode
	Volume *catalog.SourceNode
	Leaf   catalog.SourceNode
}

// Formatter renders citations using a registry of per-root rules.
type Formatter struct {
	rules map[string]Rule
}

// NewFormatter creates a Formatter with an empty rule registry.
func NewFormatter() *Formatter {
	return &Formatter{rules: make(map[string]Rule)}
}

// Register binds a formatting rule to a root source ID.
func (f *Formatter) Register(rootID string, rule Rule) {
	f.rules[rootID] = rule
}

// specializedWorks maps canonical work names to their citation rules, used
// when a root carries no registered rule but its title names a known
// collection.
var specializedWorks = []Rule{
	{SourceName: "Likkutei Sichos", VolumePaged: true},
	{SourceName: "Likkutei Torah", VolumePaged: true},
	{SourceName: "Torah Or", VolumePaged: true},
	{SourceName: "Igros Kodesh", VolumePaged: true},
}

// Format renders the citation for input. The specialized branch derives
// the volume number from explicit metadata first, then from the volume
// title's Hebrew numeral, then from the leaf's own title; the most
// explicit origin wins.
func (f *Formatter) Format(input Input) FormattedCitation {
	rule, specialized := f.ruleFor(input)
	if specialized && rule.VolumePaged {
		return f.formatVolumePaged(rule, input)
	}
	return formatDefault(input.Leaf)
}

// ruleFor resolves the rule for input: registry by root ID first, then
// known-work title matching.
func (f *Formatter) ruleFor(input Input) (Rule, bool) {
	if rule, ok := f.rules[input.RootID]; ok {
		return rule, true
	}
	if input.Root != nil {
		for _, rule := range specializedWorks {
			if match.MatchesBookName(input.Root.Title, rule.SourceName) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

func (f *Formatter) formatVolumePaged(rule Rule, input Input) FormattedCitation {
	c := FormattedCitation{
		SourceName: rule.SourceName,
		URL:        input.Leaf.ExternalURL,
	}

	if v, ok := deriveVolume(input); ok {
		c.Volume = fmt.Sprintf("vol. %d", v)
	}
	c.Pages = formatPages(input.Leaf)
	c.Section = sectionLabel(input.Leaf)

	c.Full = assemble(c)
	return c
}

// formatDefault cites an unregistered work by its verbatim title with a
// page suffix when page metadata exists.
func formatDefault(leaf catalog.SourceNode) FormattedCitation {
	c := FormattedCitation{
		SourceName: leaf.Title,
		URL:        leaf.ExternalURL,
		Pages:      formatPages(leaf),
	}
	c.Full = assemble(c)
	return c
}

// deriveVolume picks the volume number in priority order: explicit volume
// metadata, the volume title's trailing Hebrew numeral, then the leaf's
// own metadata and title.
func deriveVolume(input Input) (int, bool) {
	if input.Volume != nil && input.Volume.VolumeNumber != nil {
		return *input.Volume.VolumeNumber, true
	}
	if input.Leaf.VolumeNumber != nil {
		return *input.Leaf.VolumeNumber, true
	}
	if input.Volume != nil {
		if v, ok := gematria.TrailingValue(input.Volume.Title); ok {
			return v, true
		}
	}
	if v, ok := gematria.TrailingValue(input.Leaf.Title); ok {
		return v, true
	}
	return 0, false
}

// formatPages renders "p. N" for single pages and "pp. A-B" for ranges.
func formatPages(leaf catalog.SourceNode) string {
	if leaf.PageNumber == nil {
		return ""
	}
	start := *leaf.PageNumber
	end, _ := leaf.EndPage()
	if end > start {
		return fmt.Sprintf("pp. %d-%d", start, end)
	}
	return fmt.Sprintf("p. %d", start)
}

// sectionLabel builds the human-readable section label: the transliterated
// parsha plus the sub-item ordinal read off the leaf title ("נשא א" → 1,
// or a parenthesized suffix "(ב)" → 2).
func sectionLabel(leaf catalog.SourceNode) string {
	name := leaf.Parsha
	if name == "" {
		return ""
	}
	label := TransliterateParsha(name)

	if ordinal, ok := subItemOrdinal(leaf.Title); ok {
		label = fmt.Sprintf("%s %d", label, ordinal)
	}
	return label
}

// subItemOrdinal extracts the ordinal of a leaf within its section from a
// trailing Hebrew numeral or parenthesized suffix of the title.
func subItemOrdinal(title string) (int, bool) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return 0, false
	}
	// Parenthesized suffix: "נשא (ב)".
	if strings.HasSuffix(trimmed, ")") {
		if open := strings.LastIndex(trimmed, "("); open >= 0 {
			inner := trimmed[open+1 : len(trimmed)-1]
			if v := gematria.ToInt(inner); v > 0 {
				return v, true
			}
		}
	}
	return gematria.TrailingValue(trimmed)
}

// assemble concatenates the structured fields in the fixed citation order:
// sourceName[, volume][, pages][ (section)].
func assemble(c FormattedCitation) string {
	var sb strings.Builder
	sb.WriteString(c.SourceName)
	if c.Volume != "" {
		sb.WriteString(", ")
		sb.WriteString(c.Volume)
	}
	if c.Pages != "" {
		sb.WriteString(", ")
		sb.WriteString(c.Pages)
	}
	if c.Section != "" {
		sb.WriteString(" (")
		sb.WriteString(c.Section)
		sb.WriteString(")")
	}
	return sb.String()
}
