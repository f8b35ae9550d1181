package cite

import (
	"sort"
	"strings"
)

// parshaTable maps Hebrew weekly-portion names to their transliterations,
// following the Ashkenazi convention used in scholarly citations of the
// discourse literature.
var parshaTable = map[string]string{
	"בראשית":      "Bereishis",
	"נח":          "Noach",
	"לך לך":       "Lech Lecha",
	"וירא":        "Vayeira",
	"חיי שרה":     "Chayei Sarah",
	"תולדות":      "Toldos",
	"ויצא":        "Vayeitzei",
	"וישלח":       "Vayishlach",
	"וישב":        "Vayeishev",
	"מקץ":         "Mikeitz",
	"ויגש":        "Vayigash",
	"ויחי":        "Vayechi",
	"שמות":        "Shemos",
	"וארא":        "Va'eira",
	"בא":          "Bo",
	"בשלח":        "Beshalach",
	"יתרו":        "Yisro",
	"משפטים":      "Mishpatim",
	"תרומה":       "Terumah",
	"תצוה":        "Tetzaveh",
	"כי תשא":      "Ki Sisa",
	"ויקהל":       "Vayakhel",
	"פקודי":       "Pekudei",
	"ויקרא":       "Vayikra",
	"צו":          "Tzav",
	"שמיני":       "Shemini",
	"תזריע":       "Tazria",
	"מצורע":       "Metzora",
	"אחרי מות":    "Acharei Mos",
	"קדושים":      "Kedoshim",
	"אמור":        "Emor",
	"בהר":         "Behar",
	"בחוקותי":     "Bechukosai",
	"במדבר":       "Bamidbar",
	"נשא":         "Nasso",
	"בהעלותך":     "Behaalosecha",
	"שלח":         "Shelach",
	"קרח":         "Korach",
	"חוקת":        "Chukas",
	"בלק":         "Balak",
	"פנחס":        "Pinchas",
	"מטות":        "Matos",
	"מסעי":        "Masei",
	"דברים":       "Devarim",
	"ואתחנן":      "Va'eschanan",
	"עקב":         "Eikev",
	"ראה":         "Re'eh",
	"שופטים":      "Shoftim",
	"כי תצא":      "Ki Seitzei",
	"כי תבוא":     "Ki Savo",
	"נצבים":       "Nitzavim",
	"וילך":        "Vayeilech",
	"האזינו":      "Haazinu",
	"וזאת הברכה":  "Vezos Haberachah",
}

// parshaKeys holds table keys ordered longest-first so the substring
// fallback prefers the most specific portion name (כי תשא before בא).
var parshaKeys = buildParshaKeys()

func buildParshaKeys() []string {
	keys := make([]string, 0, len(parshaTable))
	for k := range parshaTable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// TransliterateParsha converts a Hebrew portion name to its transliterated
// form: exact table lookup first, then a substring scan, and finally the
// original Hebrew unchanged when the name is unknown.
func TransliterateParsha(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if t, ok := parshaTable[trimmed]; ok {
		return t
	}
	for _, key := range parshaKeys {
		if strings.Contains(trimmed, key) {
			return parshaTable[key]
		}
	}
	return trimmed
}
