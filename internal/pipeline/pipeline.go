package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stickermap/internal/extract"
	"stickermap/internal/match"
	"stickermap/internal/resolve"
	"stickermap/internal/tokenize"
)

// Pipeline composes the engine stages: document -> text blocks -> phrases ->
// candidates -> report. Each stage is a pure transformation; the only shared
// state is the read-only catalog inside the matcher, so one Pipeline may be
// used from many goroutines at once.
type Pipeline struct {
	extractor extract.TextExtractor
	tokenizer *tokenize.Tokenizer
	matcher   *match.Matcher
	resolver  *resolve.Resolver
	metrics   *Metrics
	logger    *slog.Logger
}

func New(ex extract.TextExtractor, tok *tokenize.Tokenizer, m *match.Matcher, res *resolve.Resolver, metrics *Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: ex,
		tokenizer: tok,
		matcher:   m,
		resolver:  res,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process runs one document through all stages. An extraction failure is
// returned as-is — never as an empty report, which would read as "no
// features found" instead of "extraction failed".
func (p *Pipeline) Process(ctx context.Context, doc extract.SourceDocument) (*resolve.Report, error) {
	start := time.Now()

	blocks, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		p.metrics.IncDocument("error")
		return nil, fmt.Errorf("extract %s: %w", doc.SourceID, err)
	}

	recognized := 0
	for _, b := range blocks {
		if b.Method == extract.MethodRecognized {
			recognized++
		}
		// extraction confidence is a diagnostic signal, logged but not
		// folded into decision confidence
		p.logger.Debug("text block",
			"source_id", doc.SourceID,
			"page", b.Page,
			"method", string(b.Method),
			"confidence", b.Confidence,
			"chars", len(b.Text),
		)
	}
	if recognized > 0 {
		p.metrics.IncFallback()
	}

	phrases := p.tokenizer.Tokenize(blocks)
	candidates := p.matcher.MatchAll(phrases)
	report := p.resolver.Resolve(doc.SourceID, candidates)

	p.metrics.IncDocument("ok")
	for _, d := range report.Decisions {
		p.metrics.IncDecision(string(d.Outcome))
	}
	p.metrics.ObserveDuration(time.Since(start))

	p.logger.Info("document processed",
		"source_id", doc.SourceID,
		"run_id", report.RunID,
		"blocks", len(blocks),
		"phrases", len(phrases),
		"candidates", len(candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
