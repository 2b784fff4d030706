package main

import (
	"context"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stickermap/constants"
	"stickermap/internal/async"
	"stickermap/internal/catalog"
	"stickermap/internal/common"
	"stickermap/internal/extract"
	"stickermap/internal/pipeline"
	"stickermap/internal/report"
	"stickermap/internal/resolve"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dir := flag.String("dir", ".", "directory of sticker documents")
	flag.Parse()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var cat *catalog.Catalog
	var err error
	if cfg.Catalog.Path == "" {
		cat = catalog.Default()
		logger.Info("using built-in feature catalog")
	} else {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			// a bad catalog is fatal: the engine must not run against it
			logger.Error("catalog load failed", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
		logger.Info("catalog loaded", "path", cfg.Catalog.Path, "features", cat.Len())
	}

	store, err := report.OpenStore(cfg.Report.StorePath, logger)
	if err != nil {
		logger.Error("open report store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close report store", "error", cerr)
		}
	}()

	pipe, err := pipeline.FromConfig(cfg, cat, nil, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}

	docs, err := collectDocuments(*dir)
	if err != nil {
		logger.Error("scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		logger.Warn("no sticker documents found", "dir", *dir)
		return
	}
	logger.Info("batch starting", "dir", *dir, "documents", len(docs), "workers", cfg.Batch.Workers)

	start := time.Now()
	results := make(chan *batchResult, len(docs))

	queue := async.NewMapperQueue(pipe, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithJobTimeout(cfg.Batch.Timeout),
		async.WithResultFunc(func(job async.Job, rep *resolve.Report, err error) {
			if err == nil {
				saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				err = store.Save(saveCtx, rep)
				cancel()
			}
			results <- &batchResult{path: job.Doc.SourceID, err: err}
		}),
	)

	ctx := context.Background()
	enqueued := 0
	for _, path := range docs {
		doc, err := readDocument(path)
		if err != nil {
			// an unreadable file is logged and skipped, never aborts the batch
			logger.Error("read document", "path", path, "error", err)
			continue
		}
		_ = queue.Enqueue(ctx, async.Job{Doc: doc, SubmittedAt: time.Now()})
		enqueued++
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(len(docs)+1)*cfg.Batch.Timeout)
	queue.Shutdown(shutdownCtx)
	cancel()
	close(results)

	var processed, failed int
	for res := range results {
		if res.err != nil {
			failed++
			logger.Error("document failed", "source_id", res.path, "error", res.err)
			continue
		}
		processed++
	}

	logger.Info("batch finished",
		"processed", processed,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if cfg.Report.ExportPath != "" {
		if err := exportAll(context.Background(), store, cat, cfg.Report.ExportPath); err != nil {
			logger.Error("export failed", "path", cfg.Report.ExportPath, "error", err)
			os.Exit(1)
		}
		logger.Info("report exported", "path", cfg.Report.ExportPath)
	}
}

type batchResult struct {
	path string
	err  error
}

func readDocument(path string) (extract.SourceDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return extract.SourceDocument{}, err
	}
	return extract.SourceDocument{
		Content:  content,
		Format:   constants.MapExtToFormat(filepath.Ext(path)),
		SourceID: stockNumberFromPath(path),
	}, nil
}

func collectDocuments(dir string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; ok {
			docs = append(docs, path)
		}
		return nil
	})
	return docs, err
}

// stockNumberFromPath treats the file name (without extension) as the stock
// number, which is how retrieval names downloaded stickers.
func stockNumberFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func exportAll(ctx context.Context, store *report.Store, cat *catalog.Catalog, path string) error {
	reports, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	data, err := report.ExportXLSX(reports, cat)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
