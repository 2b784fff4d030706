package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickermap/internal/extract"
)

func newTestTokenizer(t *testing.T, cfg Config) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer(cfg, nil)
	require.NoError(t, err)
	return tok
}

func block(text string) extract.TextBlock {
	return extract.TextBlock{Text: text, Page: 1, Method: extract.MethodStructured, Confidence: 1.0}
}

func phraseTexts(phrases []CandidatePhrase) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = p.Text
	}
	return out
}

func TestNormalizePhraseIdempotentOnCaseAndWhitespace(t *testing.T) {
	a := NormalizePhrase("Heated Front Seats")
	b := NormalizePhrase("heated   front seats")
	assert.Equal(t, a, b)
	assert.Equal(t, "heated front seats", a)
}

func TestNormalizePhraseKeepsInternalHyphens(t *testing.T) {
	assert.Equal(t, "built-in navigation", NormalizePhrase("Built-In Navigation!"))
	assert.Equal(t, "hands-free liftgate", NormalizePhrase("(Hands-Free) Liftgate,"))
}

func TestNormalizePhraseExpandsAbbreviations(t *testing.T) {
	assert.Equal(t, "air conditioning", NormalizePhrase("A/C"))
	assert.Equal(t, "power heated mirrors", NormalizePhrase("PWR HTD Mirrors"))
	assert.Equal(t, "with sunroof", NormalizePhrase("w/Sunroof"))
	assert.Equal(t, "navigation system", NormalizePhrase("NAV SYS"))
}

func TestTokenizeSplitsOnDelimiters(t *testing.T) {
	tok := newTestTokenizer(t, Config{})
	blocks := []extract.TextBlock{block("Heated Seats\n• Backup Camera\nSunroof   Power Liftgate")}

	phrases := tok.Tokenize(blocks)
	assert.Equal(t, []string{"heated seats", "backup camera", "sunroof", "power liftgate"}, phraseTexts(phrases))

	// ordinals follow document order
	for i, p := range phrases {
		assert.Equal(t, i, p.Ordinal)
		assert.Same(t, &blocks[0], p.Block)
	}
}

func TestTokenizeDropsBoilerplate(t *testing.T) {
	tok := newTestTokenizer(t, Config{})
	blocks := []extract.TextBlock{block(
		"Leather Seats\n" +
			"MSRP $42,350\n" +
			"VIN 1HGCM82633A004352\n" +
			"Page 1 of 2\n" +
			"Backup Camera",
	)}

	phrases := tok.Tokenize(blocks)
	assert.Equal(t, []string{"leather seats", "backup camera"}, phraseTexts(phrases))
}

func TestTokenizeDropsShortAndNumericPhrases(t *testing.T) {
	tok := newTestTokenizer(t, Config{})
	blocks := []extract.TextBlock{block("AWD\n12 345\n2.5\nHeated Seats")}

	phrases := tok.Tokenize(blocks)
	// "awd" is 3 chars, below the default minimum
	assert.Equal(t, []string{"heated seats"}, phraseTexts(phrases))
}

func TestTokenizeRetainsDuplicates(t *testing.T) {
	tok := newTestTokenizer(t, Config{})
	blocks := []extract.TextBlock{block("Heated Seats\nheated   seats")}

	phrases := tok.Tokenize(blocks)
	require.Len(t, phrases, 2)
	assert.Equal(t, phrases[0].Text, phrases[1].Text)
	assert.NotEqual(t, phrases[0].Ordinal, phrases[1].Ordinal)
}

func TestTokenizePreservesBlockOrderAcrossPages(t *testing.T) {
	tok := newTestTokenizer(t, Config{})
	b1 := block("Sunroof")
	b2 := extract.TextBlock{Text: "Backup Camera", Page: 2, Method: extract.MethodRecognized, Confidence: 0.7}
	phrases := tok.Tokenize([]extract.TextBlock{b1, b2})

	require.Len(t, phrases, 2)
	assert.Equal(t, "sunroof", phrases[0].Text)
	assert.Equal(t, "backup camera", phrases[1].Text)
	assert.Equal(t, extract.MethodRecognized, phrases[1].Block.Method)
}

func TestTokenizeSectionGating(t *testing.T) {
	tok := newTestTokenizer(t, Config{SectionGating: true})
	blocks := []extract.TextBlock{block(
		"2024 Example Sedan\n" +
			"Standard Equipment\n" +
			"Heated Seats\n" +
			"Backup Camera\n" +
			"Warranty Information\n" +
			"Roadside Assistance Plan",
	)}

	phrases := tok.Tokenize(blocks)
	assert.Equal(t, []string{"heated seats", "backup camera"}, phraseTexts(phrases))
}

func TestTokenizeExtraStopPatterns(t *testing.T) {
	tok := newTestTokenizer(t, Config{ExtraStopPatterns: []string{`dealer installed`}})
	blocks := []extract.TextBlock{block("Dealer Installed Mudflaps\nSunroof")}

	phrases := tok.Tokenize(blocks)
	assert.Equal(t, []string{"sunroof"}, phraseTexts(phrases))
}

func TestTokenizeBadStopPattern(t *testing.T) {
	_, err := NewTokenizer(Config{ExtraStopPatterns: []string{`[`}}, nil)
	assert.Error(t, err)
}
