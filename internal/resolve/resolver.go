package resolve

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stickermap/internal/catalog"
	"stickermap/internal/extract"
	"stickermap/internal/match"
)

// Options is the resolution policy. Tunable independently of scoring.
type Options struct {
	// Threshold is the minimum confidence for acceptance, inclusive.
	Threshold float64 // default 0.8

	// TieMargin is the score band within which two features competing for
	// the same phrase count as a tie. Ties go to a human, not the algorithm.
	TieMargin float64 // default 0.03
}

// ResolutionError is reserved: the current policy cannot fail on valid
// input, but the type exists so callers can already handle it.
type ResolutionError struct {
	Detail string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed: %s", e.Detail)
}

// Resolver turns raw match candidates into final mapping decisions. One pass
// per document; revising a report means re-running the whole pipeline.
type Resolver struct {
	cat    *catalog.Catalog
	opts   Options
	logger *slog.Logger
}

func NewResolver(cat *catalog.Catalog, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.8
	}
	if opts.TieMargin <= 0 {
		opts.TieMargin = 0.03
	}
	return &Resolver{cat: cat, opts: opts, logger: logger}
}

// Resolve applies threshold and tie-break policy across the whole document.
// Deterministic: the same candidate set always yields identical decisions.
func (r *Resolver) Resolve(sourceID string, candidates []match.Candidate) *Report {
	best := r.bestPerFeature(candidates)

	report := &Report{
		RunID:     uuid.New(),
		SourceID:  sourceID,
		CreatedAt: time.Now().UTC(),
	}

	for _, f := range r.cat.Features() {
		c, ok := best[f.ID]
		if !ok {
			continue // no evidence found; absent, not rejected
		}

		d := Decision{
			Feature:    f.ID,
			Confidence: clamp01(c.Score),
			Candidate:  c,
		}
		switch {
		case c.Score < r.opts.Threshold:
			d.Outcome = RejectedLowConfidence
			report.Summary.LowConfidence++
		case r.tiedOnSamePhrase(f.ID, c, best):
			d.Outcome = RejectedAmbiguous
			report.Summary.Ambiguous++
		default:
			d.Outcome = Accepted
			report.Summary.Accepted++
		}
		report.Decisions = append(report.Decisions, d)
	}

	r.logger.Info("document resolved",
		"source_id", sourceID,
		"run_id", report.RunID,
		"decisions", len(report.Decisions),
		"accepted", report.Summary.Accepted,
		"low_confidence", report.Summary.LowConfidence,
		"ambiguous", report.Summary.Ambiguous,
	)
	return report
}

// bestPerFeature keeps the strongest candidate per feature. Tie-break on
// equal scores: structured-path blocks over recognized ones, then earlier
// document order.
func (r *Resolver) bestPerFeature(candidates []match.Candidate) map[catalog.FeatureID]match.Candidate {
	best := make(map[catalog.FeatureID]match.Candidate)
	for _, c := range candidates {
		prev, ok := best[c.Feature]
		if !ok || betterCandidate(c, prev) {
			best[c.Feature] = c
		}
	}
	return best
}

func betterCandidate(a, b match.Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	as, bs := isStructured(a), isStructured(b)
	if as != bs {
		return as
	}
	return a.Phrase.Ordinal < b.Phrase.Ordinal
}

func isStructured(c match.Candidate) bool {
	return c.Phrase.Block != nil && c.Phrase.Block.Method == extract.MethodStructured
}

// tiedOnSamePhrase reports whether another feature's best candidate sits on
// the same phrase within the tie margin. Conservative bias: when two
// checkboxes both claim one line of sticker text, neither gets toggled.
func (r *Resolver) tiedOnSamePhrase(id catalog.FeatureID, c match.Candidate, best map[catalog.FeatureID]match.Candidate) bool {
	for otherID, other := range best {
		if otherID == id {
			continue
		}
		if other.Phrase.Ordinal != c.Phrase.Ordinal {
			continue
		}
		if diff := c.Score - other.Score; diff <= r.opts.TieMargin && diff >= -r.opts.TieMargin {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
