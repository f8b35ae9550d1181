package gematria

import (
	"testing"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"single letter", "א", 1},
		{"single tens letter", "כ", 20},
		{"compound", "כח", 28},
		{"compound with gershayim", "כ״ח", 28},
		{"compound with geresh", "כ'ח", 28},
		{"compound with ascii quote", "כ\"ח", 28},
		{"tav shin pe he", "תשפה", 785},
		{"fifteen written tet-vav", "טו", 15},
		{"sixteen written tet-zayin", "טז", 16},
		{"final form kaf", "ך", 20},
		{"final form mem", "ם", 40},
		{"whitespace and latin ignored", "vol כח", 28},
		{"no hebrew letters", "vol. 28", 0},
		{"empty", "", 0},
		{"punctuation only", "׳״", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToInt(tt.input); got != tt.want {
				t.Errorf("ToInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromInt(t *testing.T) {
	tests := []struct {
		value  int
		want   string
		wantOK bool
	}{
		{1, "א", true},
		{5, "ה", true},
		{10, "י", true},
		{15, "טו", true},
		{16, "טז", true},
		{20, "כ", true},
		{28, "כח", true},
		{39, "לט", true},
		{53, "נג", true},
		{100, "ק", true},
		{115, "קטו", true},
		{499, "תצט", true},
		{0, "", false},
		{-3, "", false},
		{500, "", false},
	}

	for _, tt := range tests {
		got, ok := FromInt(tt.value)
		if ok != tt.wantOK {
			t.Errorf("FromInt(%d) ok = %v, want %v", tt.value, ok, tt.wantOK)
			continue
		}
		if got != tt.want {
			t.Errorf("FromInt(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

// Conversion must be invertible across the whole supported range.
func TestRoundTrip(t *testing.T) {
	for n := 1; n <= 499; n++ {
		sym, ok := FromInt(n)
		if !ok {
			t.Fatalf("FromInt(%d) failed", n)
		}
		if got := ToInt(sym); got != n {
			t.Errorf("ToInt(FromInt(%d)) = %d", n, got)
		}
	}
}

func TestPunctuationInvariance(t *testing.T) {
	// Marked and unmarked forms of the same numeral must agree.
	pairs := [][2]string{
		{"כח", "כ״ח"},
		{"כח", "כ'ח"},
		{"טו", "ט״ו"},
		{"קכג", "קכ״ג"},
	}
	for _, p := range pairs {
		if ToInt(p[0]) != ToInt(p[1]) {
			t.Errorf("ToInt(%q) = %d, ToInt(%q) = %d; want equal",
				p[0], ToInt(p[0]), p[1], ToInt(p[1]))
		}
	}
}

func TestTrailingValue(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"volume title with trailing numeral", "לקוטי שיחות חלק כח", 28, true},
		{"short volume title", "חלק ה", 5, true},
		{"marked trailing numeral", "חלק כ״ח", 28, true},
		{"bare title is not a suffix", "כח", 0, false},
		{"no hebrew at all", "Volume 28", 0, false},
		{"no separator before run", "abcה", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TrailingValue(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TrailingValue(%q) = (%d, %v), want (%d, %v)",
					tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
