package main

import (
	"errors"
	"log/slog"
	"os"

	"stickermap/internal/catalog"
)

// catalogcheck validates a catalog file without running the engine.
// A bad catalog silently toggles wrong checkboxes, so this is meant for CI
// and for dealership staff editing the mapping.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "catalogcheck <catalog.json>")
		os.Exit(2)
	}

	cat, err := catalog.Load(os.Args[1])
	if err != nil {
		var ce *catalog.CatalogError
		if errors.As(err, &ce) {
			logger.Error("catalog invalid", "kind", string(ce.Kind), "detail", ce.Detail)
		} else {
			logger.Error("catalog unreadable", "error", err)
		}
		os.Exit(1)
	}

	categories := map[string]int{}
	aliases := 0
	for _, f := range cat.Features() {
		categories[f.Category]++
		aliases += len(f.Aliases)
	}

	logger.Info("catalog valid",
		"path", os.Args[1],
		"features", cat.Len(),
		"aliases", aliases,
		"categories", len(categories),
	)
}
