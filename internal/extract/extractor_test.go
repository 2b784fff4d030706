package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickermap/constants"
)

// fakeRunner stands in for pdftotext/pdftoppm/tesseract. pdftoppm "renders"
// by writing empty page files so the glob in the recognition path finds them.
type fakeRunner struct {
	pdfText string // pdftotext output; "" means no embedded layer
	pdfErr  error

	ocrText string // tesseract plain output per page
	ocrErr  error
	tsvConf float64 // mean word confidence to encode in TSV output; <0 disables TSV
	pages   int     // page images pdftoppm produces

	calls []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	switch {
	case strings.Contains(name, "pdftotext"):
		if f.pdfErr != nil {
			return nil, []byte("broken pdf"), f.pdfErr
		}
		return []byte(f.pdfText), nil, nil

	case strings.Contains(name, "pdftoppm"):
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil

	case strings.Contains(name, "tesseract"):
		if f.ocrErr != nil {
			return nil, []byte("ocr failed"), f.ocrErr
		}
		if args[len(args)-1] == "tsv" {
			if f.tsvConf < 0 {
				return []byte("level\n"), nil, nil
			}
			header := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"
			row := fmt.Sprintf("5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t%.0f\tword", f.tsvConf*100)
			return []byte(header + "\n" + row + "\n"), nil, nil
		}
		return []byte(f.ocrText), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}

func newTestExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{MinTextChars: 100}, nil)
	e.runner = r
	return e
}

func pdfDoc(content string) SourceDocument {
	return SourceDocument{Content: []byte(content), Format: constants.PDF, SourceID: "STK100"}
}

// enough linguistic text to clear the embedded-layer thresholds
func richText() string {
	lines := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		lines = append(lines, "heated front seats with premium leather trim")
	}
	return strings.Join(lines, "\n")
}

func TestStructuredPathPreferred(t *testing.T) {
	r := &fakeRunner{pdfText: richText(), pages: 1}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.NotEmpty(t, blocks)

	for _, b := range blocks {
		assert.Equal(t, MethodStructured, b.Method)
		assert.Equal(t, 1.0, b.Confidence)
	}
	// recognition binaries never invoked
	for _, call := range r.calls {
		assert.NotContains(t, call, "pdftoppm")
		assert.NotContains(t, call, "tesseract")
	}
}

func TestStructuredPathSplitsPages(t *testing.T) {
	r := &fakeRunner{pdfText: richText() + "\fsecond page heated seats and sunroof package options", pages: 1}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[0].Page)
	assert.Equal(t, 2, blocks[1].Page)
}

func TestFallbackOnThinTextLayer(t *testing.T) {
	r := &fakeRunner{
		pdfText: "stub", // below MinTextChars
		pages:   1,
		ocrText: "Heated Seats\nBackup Camera",
		tsvConf: 0.4,
	}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, MethodRecognized, b.Method)
	// the engine's reported confidence must propagate, not be discarded
	assert.InDelta(t, 0.4, b.Confidence, 1e-9)
	assert.Contains(t, b.Text, "Heated Seats")
}

func TestFallbackOnNonLinguisticLayer(t *testing.T) {
	junk := strings.Repeat("0123456789#%&@ ", 20) // long enough, but symbol soup
	r := &fakeRunner{pdfText: junk, pages: 1, ocrText: "Sunroof", tsvConf: 0.8}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.Equal(t, MethodRecognized, blocks[0].Method)
}

func TestHeuristicConfidenceWhenTSVUnavailable(t *testing.T) {
	r := &fakeRunner{pdfText: "", pages: 1, ocrText: "Heated Seats", tsvConf: -1}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Greater(t, blocks[0].Confidence, 0.0)
	assert.LessOrEqual(t, blocks[0].Confidence, 1.0)
}

func TestNoTextRecoverable(t *testing.T) {
	r := &fakeRunner{pdfText: "", pages: 1, ocrText: "  \n "}
	e := newTestExtractor(r)

	_, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.Error(t, err)
	assert.True(t, IsExtractionError(err, NoTextRecoverable), "got: %v", err)
}

func TestCorruptDocument(t *testing.T) {
	r := &fakeRunner{pdfErr: fmt.Errorf("exit status 1"), pages: 0}
	e := newTestExtractor(r)

	_, err := e.Extract(context.Background(), pdfDoc("not a pdf"))
	require.Error(t, err)
	assert.True(t, IsExtractionError(err, CorruptDocument), "got: %v", err)
}

func TestUnsupportedFormat(t *testing.T) {
	e := newTestExtractor(&fakeRunner{})

	_, err := e.Extract(context.Background(), SourceDocument{
		Content:  []byte("data"),
		Format:   constants.Format("DOCX"),
		SourceID: "STK101",
	})
	require.Error(t, err)
	assert.True(t, IsExtractionError(err, UnsupportedFormat))
}

func TestEmptyContentRejected(t *testing.T) {
	e := newTestExtractor(&fakeRunner{})

	_, err := e.Extract(context.Background(), SourceDocument{Format: constants.PDF, SourceID: "STK102"})
	require.Error(t, err)
	assert.True(t, IsExtractionError(err, CorruptDocument))
}

func TestImageDocumentRecognized(t *testing.T) {
	r := &fakeRunner{ocrText: "Navigation System", tsvConf: 0.9}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), SourceDocument{
		Content:  []byte("png bytes"),
		Format:   constants.IMAGE,
		SourceID: "STK103",
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, MethodRecognized, blocks[0].Method)
	assert.InDelta(t, 0.9, blocks[0].Confidence, 1e-9)
}

func TestRecognitionTimeout(t *testing.T) {
	e := NewExtractor(Config{MinTextChars: 100, Timeout: time.Nanosecond}, nil)
	e.runner = &slowRunner{}

	_, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.Error(t, err)
	assert.True(t, IsExtractionError(err, NoTextRecoverable), "got: %v", err)
}

// slowRunner reports no embedded layer, then blocks until the context dies.
type slowRunner struct{}

func (slowRunner) Run(ctx context.Context, name string, _ ...string) ([]byte, []byte, error) {
	if strings.Contains(name, "pdftotext") {
		return nil, nil, nil
	}
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func TestMultiPageRecognitionPreservesOrder(t *testing.T) {
	r := &orderedPagesRunner{pages: 3}
	e := newTestExtractor(r)

	blocks, err := e.Extract(context.Background(), pdfDoc("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		assert.Equal(t, i+1, b.Page)
		assert.Contains(t, b.Text, fmt.Sprintf("page %d", i+1))
	}
}

// orderedPagesRunner emits distinct text per rendered page.
type orderedPagesRunner struct {
	pages int
}

func (r *orderedPagesRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	switch {
	case strings.Contains(name, "pdftotext"):
		return nil, nil, nil
	case strings.Contains(name, "pdftoppm"):
		prefix := args[len(args)-1]
		for i := 1; i <= r.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case strings.Contains(name, "tesseract"):
		img := args[0]
		if args[len(args)-1] == "tsv" {
			return []byte("level\n"), nil, nil
		}
		// page number from "...page-N.png"
		n := strings.TrimSuffix(img[strings.LastIndex(img, "-")+1:], ".png")
		return []byte("sticker text for page " + n), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}
