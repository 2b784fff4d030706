package tokenize

import "strings"

// Sticker vendors abbreviate aggressively and inconsistently; expansion
// happens before punctuation stripping so slashed forms still match.
var abbreviations = map[string]string{
	"a/c":   "air conditioning",
	"am/fm": "am fm",
	"pwr":   "power",
	"htd":   "heated",
	"nav":   "navigation",
	"sys":   "system",
	"pkg":   "package",
	"frt":   "front",
	"rr":    "rear",
}

// NormalizePhrase lowercases, expands known abbreviations, strips punctuation
// except internal hyphens, and collapses whitespace. Matching both sides of a
// comparison through this function is what makes scores comparable.
func NormalizePhrase(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		key := strings.Trim(tok, ".,;:()[]{}\"'")
		if exp, ok := abbreviations[key]; ok {
			out = append(out, exp)
			continue
		}
		// "w/xyz" -> "with xyz"
		if strings.HasPrefix(key, "w/") && len(key) > 2 {
			out = append(out, "with")
			if rest := cleanToken(key[2:]); rest != "" {
				out = append(out, rest)
			}
			continue
		}
		if ct := cleanToken(tok); ct != "" {
			out = append(out, ct)
		}
	}
	return strings.Join(out, " ")
}

// cleanToken keeps letters, digits and internal hyphens.
func cleanToken(tok string) string {
	var b strings.Builder
	for _, r := range tok {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'à' && r <= 'ÿ':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
