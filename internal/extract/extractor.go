package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stickermap/constants"
)

// maxParallelOCR bounds concurrent tesseract invocations per document.
const maxParallelOCR = 4

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// MinTextChars is the smallest embedded-text yield that counts as a real
	// text layer. Sticker scans often carry a handful of metadata characters
	// and nothing else; below this the recognition path takes over.
	MinTextChars int // default 100

	// MinWordCharRatio rejects embedded layers that decode to symbol soup.
	MinWordCharRatio float64 // default 0.5

	// Timeout bounds the recognition path. On expiry the document fails with
	// NoTextRecoverable; retrying is the caller's call, not the extractor's.
	Timeout time.Duration

	PSM int // e.g., 6 is good for uniform blocks of sticker text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Extractor turns a SourceDocument into text blocks, preferring the embedded
// text layer and falling back to render+OCR when the layer is absent or junk.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.MinWordCharRatio <= 0 {
		cfg.MinWordCharRatio = 0.5
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on the declared document format.
func (e *Extractor) Extract(ctx context.Context, doc SourceDocument) ([]TextBlock, error) {
	if len(doc.Content) == 0 {
		return nil, newExtractionError(CorruptDocument, fmt.Errorf("empty document content"))
	}

	switch doc.Format {
	case constants.PDF, constants.IMAGE:
	default:
		e.logger.Error("unsupported document format", "source_id", doc.SourceID, "format", string(doc.Format))
		return nil, newExtractionError(UnsupportedFormat, fmt.Errorf("format %q", doc.Format))
	}

	tmpDir, err := os.MkdirTemp("", "sm-doc-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rerr)
		}
	}()

	path := filepath.Join(tmpDir, "doc"+formatExt(doc.Format))
	if err := os.WriteFile(path, doc.Content, 0o600); err != nil {
		return nil, fmt.Errorf("write temp document: %w", err)
	}

	start := time.Now()
	var blocks []TextBlock
	if doc.Format == constants.PDF {
		blocks, err = e.extractPDF(ctx, path, tmpDir)
	} else {
		blocks, err = e.extractImage(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, newExtractionError(NoTextRecoverable, fmt.Errorf("both extraction paths yielded no text"))
	}

	e.logger.Info("document extracted",
		"source_id", doc.SourceID,
		"format", string(doc.Format),
		"blocks", len(blocks),
		"method", string(blocks[0].Method),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return blocks, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path, tmpDir string) ([]TextBlock, error) {
	text, textErr := e.pdfToText(ctx, path)
	if textErr == nil && e.usableTextLayer(text) {
		return blocksFromStructured(text), nil
	}
	if textErr != nil {
		e.logger.Warn("embedded text layer unreadable, trying recognition", "error", textErr)
	} else {
		e.logger.Debug("embedded text layer too thin, trying recognition",
			"chars", len(strings.TrimSpace(text)),
			"word_char_ratio", wordCharRatio(text),
		)
	}

	blocks, err := e.pdfToRecognized(ctx, path, tmpDir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newExtractionError(NoTextRecoverable, ctx.Err())
		}
		if textErr != nil {
			// neither path could read the document at all
			return nil, newExtractionError(CorruptDocument, err)
		}
		return nil, newExtractionError(NoTextRecoverable, err)
	}
	return blocks, nil
}

// usableTextLayer decides whether the embedded text layer stands on its own.
func (e *Extractor) usableTextLayer(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.cfg.MinTextChars {
		return false
	}
	return wordCharRatio(trimmed) >= e.cfg.MinWordCharRatio
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (e *Extractor) pdfToRecognized(ctx context.Context, path, tmpDir string) ([]TextBlock, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}

	// recognition is CPU-bound; bound the fan-out and keep page order
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelOCR)
	pages := make([]TextBlock, len(matches))
	for i, img := range matches {
		g.Go(func() error {
			block, err := e.recognizePage(gctx, img, i+1)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("page recognition failed", "page", i+1, "error", err)
				return nil
			}
			pages[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blocks []TextBlock
	for _, b := range pages {
		if b.Text != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) ([]TextBlock, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	block, err := e.recognizePage(ctx, path, 1)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newExtractionError(NoTextRecoverable, ctx.Err())
		}
		return nil, newExtractionError(CorruptDocument, err)
	}
	if block.Text == "" {
		return nil, newExtractionError(NoTextRecoverable, fmt.Errorf("recognition yielded no text"))
	}
	return []TextBlock{block}, nil
}

// recognizePage runs OCR on one rendered page and attaches the engine's
// confidence. Confidence comes from the TSV word-confidence mean when the
// engine reports one, otherwise from a text-shape heuristic.
func (e *Extractor) recognizePage(ctx context.Context, imgPath string, page int) (TextBlock, error) {
	txt, err := e.tesseractOCR(ctx, imgPath)
	if err != nil {
		return TextBlock{}, err
	}
	txt = cleanRecognized(txt)

	conf, err := e.tesseractTSVConfidence(ctx, imgPath)
	if err != nil {
		e.logger.Debug("tsv confidence unavailable", "page", page, "error", err)
		conf = 0
	}
	if conf <= 0 {
		conf = heuristicConfidence(txt)
	}

	return TextBlock{
		Text:       txt,
		Page:       page,
		Method:     MethodRecognized,
		Confidence: conf,
	}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// blocksFromStructured splits an embedded text layer into per-page blocks.
// pdftotext separates pages with a form feed.
func blocksFromStructured(text string) []TextBlock {
	pages := strings.Split(text, "\f")
	blocks := make([]TextBlock, 0, len(pages))
	for i, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocks = append(blocks, TextBlock{
			Text:       p,
			Page:       i + 1,
			Method:     MethodStructured,
			Confidence: 1.0,
		})
	}
	return blocks
}

func formatExt(f constants.Format) string {
	if f == constants.PDF {
		return ".pdf"
	}
	return ".png"
}
