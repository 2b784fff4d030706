package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickermap/internal/catalog"
	"stickermap/internal/extract"
	"stickermap/internal/match"
	"stickermap/internal/tokenize"
)

var (
	structuredBlock = extract.TextBlock{Page: 1, Method: extract.MethodStructured, Confidence: 1.0}
	recognizedBlock = extract.TextBlock{Page: 1, Method: extract.MethodRecognized, Confidence: 0.4}
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(`{
		"features": {
			"Leather Seats": {"Interior": ["leather seating surfaces"]},
			"Heated Seats": {"Interior": ["heated seats"]},
			"Heated Steering Wheel": {"Comfort": ["heated steering wheel"]},
			"Sunroof": {"Exterior": ["sunroof"]}
		}
	}`))
	require.NoError(t, err)
	return cat
}

func candidate(feature catalog.FeatureID, score float64, ordinal int, block *extract.TextBlock) match.Candidate {
	return match.Candidate{
		Phrase:  tokenize.CandidatePhrase{Text: "phrase " + string(feature), Ordinal: ordinal, Block: block},
		Feature: feature,
		Score:   score,
		Alias:   "alias " + string(feature),
	}
}

func TestCleanMatchAccepted(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK001", []match.Candidate{
		candidate("leather_seats", 1.0, 0, &structuredBlock),
	})

	require.Len(t, rep.Decisions, 1)
	d := rep.Decisions[0]
	assert.Equal(t, catalog.FeatureID("leather_seats"), d.Feature)
	assert.Equal(t, Accepted, d.Outcome)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, 1, rep.Summary.Accepted)
	assert.Equal(t, "STK001", rep.SourceID)
}

func TestThresholdBoundaryInclusive(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{Threshold: 0.8}, nil)

	rep := r.Resolve("STK002", []match.Candidate{
		candidate("leather_seats", 0.8, 0, &structuredBlock),
		candidate("sunroof", 0.79999, 1, &structuredBlock),
	})

	leather, ok := rep.Decision("leather_seats")
	require.True(t, ok)
	assert.Equal(t, Accepted, leather.Outcome)

	sunroof, ok := rep.Decision("sunroof")
	require.True(t, ok)
	assert.Equal(t, RejectedLowConfidence, sunroof.Outcome)
}

func TestAmbiguousTieRejectsBoth(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{Threshold: 0.8, TieMargin: 0.03}, nil)

	// one phrase, two features within the margin
	p := tokenize.CandidatePhrase{Text: "heated seat", Ordinal: 3, Block: &structuredBlock}
	rep := r.Resolve("STK003", []match.Candidate{
		{Phrase: p, Feature: "heated_seats", Score: 0.92, Alias: "heated seats"},
		{Phrase: p, Feature: "heated_steering_wheel", Score: 0.92, Alias: "heated seat warmer"},
	})

	seats, ok := rep.Decision("heated_seats")
	require.True(t, ok)
	assert.Equal(t, RejectedAmbiguous, seats.Outcome)

	wheel, ok := rep.Decision("heated_steering_wheel")
	require.True(t, ok)
	assert.Equal(t, RejectedAmbiguous, wheel.Outcome)

	assert.Equal(t, 2, rep.Summary.Ambiguous)
	assert.Empty(t, rep.AcceptedFeatures())
}

func TestTieOnDifferentPhrasesIsNotAmbiguous(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK004", []match.Candidate{
		candidate("heated_seats", 0.92, 0, &structuredBlock),
		candidate("heated_steering_wheel", 0.92, 1, &structuredBlock),
	})

	assert.Equal(t, 2, rep.Summary.Accepted)
}

func TestOutsideMarginAccepted(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{Threshold: 0.8, TieMargin: 0.03}, nil)

	p := tokenize.CandidatePhrase{Text: "heated seats", Ordinal: 0, Block: &structuredBlock}
	rep := r.Resolve("STK005", []match.Candidate{
		{Phrase: p, Feature: "heated_seats", Score: 0.98, Alias: "heated seats"},
		{Phrase: p, Feature: "heated_steering_wheel", Score: 0.90, Alias: "heated steering wheel"},
	})

	seats, ok := rep.Decision("heated_seats")
	require.True(t, ok)
	assert.Equal(t, Accepted, seats.Outcome)

	// the weaker competitor stands on its own score
	wheel, ok := rep.Decision("heated_steering_wheel")
	require.True(t, ok)
	assert.Equal(t, Accepted, wheel.Outcome)
}

func TestBestCandidateWinsPerFeature(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK006", []match.Candidate{
		candidate("sunroof", 0.85, 0, &structuredBlock),
		candidate("sunroof", 0.95, 1, &structuredBlock),
	})

	require.Len(t, rep.Decisions, 1)
	assert.Equal(t, 0.95, rep.Decisions[0].Confidence)
	assert.Equal(t, 1, rep.Summary.Accepted)
}

func TestTieBreakPrefersStructuredThenEarlier(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK007", []match.Candidate{
		candidate("sunroof", 0.9, 5, &recognizedBlock),
		candidate("sunroof", 0.9, 7, &structuredBlock),
		candidate("sunroof", 0.9, 9, &structuredBlock),
	})

	require.Len(t, rep.Decisions, 1)
	assert.Equal(t, 7, rep.Decisions[0].Candidate.Phrase.Ordinal)
}

func TestAtMostOneAcceptedPerFeature(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK008", []match.Candidate{
		candidate("heated_seats", 0.95, 0, &structuredBlock),
		candidate("heated_seats", 0.93, 1, &structuredBlock),
		candidate("heated_seats", 0.99, 2, &recognizedBlock),
	})

	accepted := 0
	for _, d := range rep.Decisions {
		if d.Feature == "heated_seats" && d.Outcome == Accepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestFeaturesWithoutCandidatesAbsent(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK009", []match.Candidate{
		candidate("sunroof", 0.9, 0, &structuredBlock),
	})

	require.Len(t, rep.Decisions, 1)
	_, ok := rep.Decision("heated_seats")
	assert.False(t, ok)
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)
	cands := []match.Candidate{
		candidate("sunroof", 0.9, 0, &structuredBlock),
		candidate("heated_seats", 0.7, 1, &recognizedBlock),
		candidate("leather_seats", 0.99, 2, &structuredBlock),
	}

	first := r.Resolve("STK010", cands)
	for i := 0; i < 5; i++ {
		again := r.Resolve("STK010", cands)
		assert.Equal(t, first.Decisions, again.Decisions)
		assert.Equal(t, first.Summary, again.Summary)
	}
}

func TestConfidenceInRange(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK011", []match.Candidate{
		candidate("sunroof", 1.0, 0, &structuredBlock),
		candidate("heated_seats", 0.51, 1, &recognizedBlock),
	})
	for _, d := range rep.Decisions {
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
	}
}

func TestDecisionsFollowCatalogOrder(t *testing.T) {
	r := NewResolver(testCatalog(t), Options{}, nil)

	rep := r.Resolve("STK012", []match.Candidate{
		candidate("sunroof", 0.9, 0, &structuredBlock),
		candidate("heated_seats", 0.9, 1, &structuredBlock),
		candidate("leather_seats", 0.9, 2, &structuredBlock),
	})

	// catalog order is lexicographic by display name
	require.Len(t, rep.Decisions, 3)
	assert.Equal(t, catalog.FeatureID("heated_seats"), rep.Decisions[0].Feature)
	assert.Equal(t, catalog.FeatureID("leather_seats"), rep.Decisions[1].Feature)
	assert.Equal(t, catalog.FeatureID("sunroof"), rep.Decisions[2].Feature)
}
