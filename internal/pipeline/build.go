package pipeline

import (
	"log/slog"

	"stickermap/internal/catalog"
	"stickermap/internal/common"
	"stickermap/internal/extract"
	"stickermap/internal/match"
	"stickermap/internal/resolve"
	"stickermap/internal/tokenize"
)

// FromConfig wires the standard stages from application configuration.
func FromConfig(cfg *common.Config, cat *catalog.Catalog, metrics *Metrics, logger *slog.Logger) (*Pipeline, error) {
	extractor := extract.NewExtractor(extract.Config{
		Pdftotext:        cfg.Extraction.Pdftotext,
		Pdftoppm:         cfg.Extraction.Pdftoppm,
		Tesseract:        cfg.Extraction.Tesseract,
		TesseractLang:    cfg.Extraction.TesseractLang,
		TessdataDir:      cfg.Extraction.TessdataDir,
		DPI:              cfg.Extraction.DPI,
		MaxPages:         cfg.Extraction.MaxPages,
		MinTextChars:     cfg.Extraction.MinTextChars,
		MinWordCharRatio: cfg.Extraction.MinWordCharRatio,
		Timeout:          cfg.Extraction.Timeout,
	}, logger)

	tokenizer, err := tokenize.NewTokenizer(tokenize.Config{
		SectionGating: cfg.Matching.SectionGating,
	}, logger)
	if err != nil {
		return nil, err
	}

	matcher := match.NewMatcher(cat, match.Config{ScoreFloor: cfg.Matching.ScoreFloor})
	resolver := resolve.NewResolver(cat, resolve.Options{
		Threshold: cfg.Matching.ConfidenceThreshold,
		TieMargin: cfg.Matching.TieMargin,
	}, logger)

	return New(extractor, tokenizer, matcher, resolver, metrics, logger), nil
}
