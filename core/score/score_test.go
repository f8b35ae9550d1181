package score

import (
	"testing"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/reference"
)

func candidate(title, ref string) Candidate {
	return Candidate{
		Source:    catalog.SourceNode{ID: title, Title: title},
		Reference: ref,
	}
}

func TestScoreMatchBookGate(t *testing.T) {
	// No shared substring, no shared alias group: the reference portion
	// must not rescue the score.
	ref := reference.Parse("Totally Unrelated ch. 32")
	got := ScoreMatch(candidate("Likkutei Amarim", "ch. 32"), ref)
	if got != 0 {
		t.Errorf("ScoreMatch = %d, want 0 (book gate)", got)
	}
}

func TestScoreMatchContributions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		cand  Candidate
		want  int
	}{
		{
			name:  "exact book exact reference",
			query: "Likkutei Amarim ch. 32",
			cand:  candidate("Likkutei Amarim", "ch. 32"),
			want:  100,
		},
		{
			name:  "alias book exact reference",
			query: "Tanya ch. 32",
			cand:  candidate("Likkutei Amarim", "ch. 32"),
			want:  80,
		},
		{
			name:  "substring book exact reference",
			query: "Sichos vol. 28, p. 33",
			cand:  candidate("Likkutei Sichos", "vol. 28, p. 33"),
			want:  90,
		},
		{
			name:  "exact book substring reference",
			query: "Likkutei Amarim ch. 32",
			cand:  candidate("Likkutei Amarim", "likkutei amarim ch. 32"),
			want:  85,
		},
		{
			name:  "exact book numeric overlap only",
			query: "Likkutei Amarim ch. 32",
			cand:  candidate("Likkutei Amarim", "p. 32"),
			want:  75,
		},
		{
			name:  "exact book no reference in query",
			query: "Likkutei Amarim",
			cand:  candidate("Likkutei Amarim", "ch. 32"),
			want:  80,
		},
		{
			name:  "exact book neither side has reference",
			query: "Likkutei Amarim",
			cand:  candidate("Likkutei Amarim", ""),
			want:  60,
		},
		{
			name:  "exact book query reference unmatched",
			query: "Likkutei Amarim ch. 32",
			cand:  candidate("Likkutei Amarim", ""),
			want:  60,
		},
		{
			name:  "hebrew numeral overlaps digits",
			query: "תניא פרק לב",
			cand:  candidate("תניא", "ch. 32"),
			want:  75,
		},
		{
			name:  "one shared token among several",
			query: "Likkutei Amarim vol. 28, p. 33",
			cand:  candidate("Likkutei Amarim", "עמ לג"),
			want:  75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := reference.Parse(tt.query)
			if got := ScoreMatch(tt.cand, parsed); got != tt.want {
				t.Errorf("ScoreMatch(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		confidence int
		want       MatchType
	}{
		{100, MatchExact},
		{90, MatchExact},
		{89, MatchFuzzy},
		{70, MatchFuzzy},
		{69, MatchPartial},
		{0, MatchPartial},
	}
	for _, tt := range tests {
		if got := Classify(tt.confidence); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestFuzzyMatchCitationThreshold(t *testing.T) {
	// Alias book (40) + numeric overlap (15) = 55; alias book alone = 40.
	over := candidate("Likkutei Amarim", "p. 32")
	under := candidate("Likkutei Amarim", "")

	if got := FuzzyMatchCitation("Tanya ch. 32", []Candidate{under}, 50); got != nil {
		t.Errorf("score 40 with threshold 50 should return nil, got %+v", got)
	}
	got := FuzzyMatchCitation("Tanya ch. 32", []Candidate{over}, 50)
	if got == nil {
		t.Fatal("score 55 with threshold 50 should match")
	}
	if got.Confidence != 55 {
		t.Errorf("Confidence = %d, want 55", got.Confidence)
	}
	// Exactly at the threshold qualifies.
	if got := FuzzyMatchCitation("Tanya ch. 32", []Candidate{over}, 55); got == nil {
		t.Error("score equal to threshold should match")
	}
	if got := FuzzyMatchCitation("Tanya ch. 32", []Candidate{over}, 56); got != nil {
		t.Error("score below threshold should not match")
	}
}

func TestFuzzyMatchCitationStableTieBreak(t *testing.T) {
	first := candidate("Likkutei Amarim", "ch. 32")
	second := Candidate{
		Source:    catalog.SourceNode{ID: "other", Title: "Likkutei Amarim"},
		Reference: "ch. 32",
	}

	got := FuzzyMatchCitation("Tanya ch. 32", []Candidate{first, second}, 50)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Source.ID != first.Source.ID {
		t.Errorf("tie broken to %q, want first-listed %q", got.Source.ID, first.Source.ID)
	}
}

func TestFuzzyMatchCitationEndToEnd(t *testing.T) {
	candidates := []Candidate{
		candidate("Torah Or", "p. 5"),
		candidate("Likkutei Amarim", "ch. 32"),
		candidate("Derech Mitzvosecha", ""),
	}

	got := FuzzyMatchCitation("Tanya ch. 32", candidates, 0)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Source.Title != "Likkutei Amarim" {
		t.Errorf("matched %q, want Likkutei Amarim", got.Source.Title)
	}
	if got.Confidence < 70 {
		t.Errorf("Confidence = %d, want >= 70", got.Confidence)
	}
	if got.MatchType != MatchExact && got.MatchType != MatchFuzzy {
		t.Errorf("MatchType = %q, want exact or fuzzy", got.MatchType)
	}
}

func TestFuzzyMatchCitationEmptyCandidates(t *testing.T) {
	if got := FuzzyMatchCitation("Tanya ch. 32", nil, 50); got != nil {
		t.Errorf("no candidates should return nil, got %+v", got)
	}
}

func TestFuzzyMatchCitationDefaultThreshold(t *testing.T) {
	// minConfidence 0 falls back to DefaultMinConfidence (50): a bare
	// alias match at 40 must not qualify.
	under := candidate("Likkutei Amarim", "")
	if got := FuzzyMatchCitation("Tanya", []Candidate{under}, 0); got != nil {
		t.Errorf("expected nil under default threshold, got %+v", got)
	}
}
