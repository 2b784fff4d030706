package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
)

// cleanRecognized collapses noisy whitespace and strips common OCR line noise
// (box-drawing rules, separator lines). Conservative: keeps line breaks and
// multi-space runs, which the tokenizer treats as column delimiters.
func cleanRecognized(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, "  ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// wordCharRatio is the fraction of letters among the non-space runes of s.
// A structured text layer that is mostly symbols or digits is treated as
// non-linguistic and routed to the recognition path instead.
func wordCharRatio(s string) float64 {
	var letters, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if unicode.IsLetter(r) {
			letters++
		}
		total++
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}
