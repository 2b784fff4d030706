package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// tesseractTSVConfidence runs tesseract in TSV mode and returns the mean word
// confidence in 0..1. Returns 0 when the output carries no confident words.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float64, error) {
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
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}

	lines := strings.Split(string(out), "\n")
	// columns: level page_num block_num par_num line_num word_num
	//          left top width height conf text
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / n / 100.0, nil
}

// heuristicConfidence estimates recognition quality from the shape of the
// decoded text when the engine reports no word confidences. Sticker text is
// delimited feature lines, so line count and letter ratio carry most of the
// signal.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := 0.2 // base
	if wordCharRatio(txt) >= 0.6 {
		score += 0.3
	}
	lines := 0
	for _, ln := range strings.Split(txt, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines++
		}
	}
	if lines >= 5 {
		score += 0.2
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
