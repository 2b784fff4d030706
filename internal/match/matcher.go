package match

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"stickermap/internal/catalog"
	"stickermap/internal/tokenize"
)

// Candidate is a scored pairing of a candidate phrase and a canonical
// feature. Transient: produced here, consumed by the resolver.
type Candidate struct {
	Phrase  tokenize.CandidatePhrase
	Feature catalog.FeatureID
	Score   float64 // [0,1]
	Alias   string  // winning alias, raw configured form
}

type Config struct {
	// ScoreFloor bounds output size: features whose best alias scores below
	// it produce no candidate at all. Default 0.5.
	ScoreFloor float64
}

// aliasEntry is an alias precomputed into comparable form: normalized and
// token-sorted once at matcher construction instead of per phrase.
type aliasEntry struct {
	feature catalog.FeatureID
	raw     string
	sorted  string
}

// Matcher scores phrases against every catalog feature with a token-order-
// insensitive edit-distance ratio. Deliberately not semantic: the vocabulary
// is small and closed, and matching must stay deterministic so reports are
// reproducible.
type Matcher struct {
	cat   *catalog.Catalog
	floor float64
	index []aliasEntry
}

func NewMatcher(cat *catalog.Catalog, cfg Config) *Matcher {
	if cfg.ScoreFloor <= 0 {
		cfg.ScoreFloor = 0.5
	}

	var index []aliasEntry
	for _, f := range cat.Features() {
		for _, alias := range f.Aliases {
			norm := tokenize.NormalizePhrase(alias)
			if norm == "" {
				continue
			}
			index = append(index, aliasEntry{
				feature: f.ID,
				raw:     alias,
				sorted:  sortTokens(norm),
			})
		}
	}

	return &Matcher{cat: cat, floor: cfg.ScoreFloor, index: index}
}

// Match scores one phrase against the whole catalog and returns one candidate
// per feature whose best alias clears the floor. Ambiguity between features
// is not resolved here; overlapping candidates all surface.
func (m *Matcher) Match(phrase tokenize.CandidatePhrase) []Candidate {
	sorted := sortTokens(phrase.Text)

	best := make(map[catalog.FeatureID]Candidate)
	for _, entry := range m.index {
		score := similarity(sorted, entry.sorted)
		if score < m.floor {
			continue
		}
		if prev, ok := best[entry.feature]; ok && prev.Score >= score {
			continue
		}
		best[entry.feature] = Candidate{
			Phrase:  phrase,
			Feature: entry.feature,
			Score:   score,
			Alias:   entry.raw,
		}
	}

	// catalog order keeps output deterministic
	out := make([]Candidate, 0, len(best))
	for _, f := range m.cat.Features() {
		if c, ok := best[f.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// MatchAll scores every phrase, preserving phrase order.
func (m *Matcher) MatchAll(phrases []tokenize.CandidatePhrase) []Candidate {
	var out []Candidate
	for _, p := range phrases {
		out = append(out, m.Match(p)...)
	}
	return out
}

// similarity is a normalized Levenshtein ratio over token-sorted strings, so
// "heated seats front" and "front heated seats" score near-identically.
// Very short strings only match exactly; edit distance on them is all noise.
func similarity(sortedPhrase, sortedAlias string) float64 {
	if sortedPhrase == sortedAlias {
		return 1.0
	}
	if len(sortedPhrase) < 4 || len(sortedAlias) < 4 {
		return 0
	}
	return levenshtein.Similarity(sortedPhrase, sortedAlias, nil)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
