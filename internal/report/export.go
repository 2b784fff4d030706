package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"stickermap/internal/catalog"
	"stickermap/internal/resolve"
)

// ExportXLSX renders reports into an XLSX workbook: one Decisions sheet with
// every decision, one Summary sheet with per-document counts. Feature names
// and categories are resolved against the catalog the reports were produced
// with.
func ExportXLSX(reports []*resolve.Report, cat *catalog.Catalog) ([]byte, error) {
	f := excelize.NewFile()

	if err := writeDecisionsSheet(f, reports, cat); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, reports); err != nil {
		return nil, err
	}

	// excelize seeds a default sheet we do not use
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if idx, _ := f.GetSheetIndex("Summary"); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDecisionsSheet(f *excelize.File, reports []*resolve.Report, cat *catalog.Catalog) error {
	const sheet = "Decisions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Source", "Run ID", "Created At", "Feature", "Category", "Outcome", "Confidence", "Matched Text", "Alias"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, rep := range reports {
		for _, d := range rep.Decisions {
			name := string(d.Feature)
			category := ""
			if feat, ok := cat.Get(d.Feature); ok {
				name = feat.Name
				category = feat.Category
			}
			values := []any{
				rep.SourceID,
				rep.RunID.String(),
				rep.CreatedAt.Format(time.RFC3339),
				name,
				category,
				string(d.Outcome),
				d.Confidence,
				d.Candidate.Phrase.Text,
				d.Candidate.Alias,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
			row++
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, reports []*resolve.Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Source", "Run ID", "Created At", "Accepted", "Low Confidence", "Ambiguous"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, rep := range reports {
		values := []any{
			rep.SourceID,
			rep.RunID.String(),
			rep.CreatedAt.Format(time.RFC3339),
			rep.Summary.Accepted,
			rep.Summary.LowConfidence,
			rep.Summary.Ambiguous,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
