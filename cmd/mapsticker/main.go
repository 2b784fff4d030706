package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stickermap/constants"
	"stickermap/internal/catalog"
	"stickermap/internal/common"
	"stickermap/internal/extract"
	"stickermap/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	stockNumber := flag.String("stock", "", "source identifier (stock number); defaults to the file name")
	flag.Parse()

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "mapsticker [-stock ID] <sticker.pdf|sticker.png>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg, logger)
	if err != nil {
		logger.Error("catalog load failed", "error", err)
		os.Exit(1)
	}

	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		logger.Error("unsupported file extension", "path", path)
		os.Exit(2)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}
	sourceID := *stockNumber
	if sourceID == "" {
		sourceID = filepath.Base(path)
	}

	pipe, err := pipeline.FromConfig(cfg, cat, nil, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Batch.Timeout)
	defer cancel()

	start := time.Now()
	report, err := pipe.Process(ctx, extract.SourceDocument{
		Content:  content,
		Format:   format,
		SourceID: sourceID,
	})
	if err != nil {
		logger.Error("mapping failed", "source_id", sourceID, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reportView(report, cat)); err != nil {
		logger.Error("encode report", "error", err)
		os.Exit(1)
	}
}

func loadCatalog(cfg *common.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		logger.Info("using built-in feature catalog")
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded", "path", cfg.Catalog.Path, "features", cat.Len())
	return cat, nil
}
