package main

import (
	"time"

	"stickermap/internal/catalog"
	"stickermap/internal/resolve"
)

// JSON shape printed to stdout for the caller or a human.
type reportJSON struct {
	RunID     string         `json:"run_id"`
	SourceID  string         `json:"source_id"`
	CreatedAt string         `json:"created_at"`
	Summary   summaryJSON    `json:"summary"`
	Decisions []decisionJSON `json:"decisions"`
}

type summaryJSON struct {
	Accepted      int `json:"accepted"`
	LowConfidence int `json:"rejected_low_confidence"`
	Ambiguous     int `json:"rejected_ambiguous"`
}

type decisionJSON struct {
	Feature    string  `json:"feature"`
	Category   string  `json:"category,omitempty"`
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Phrase     string  `json:"matched_text"`
	Alias      string  `json:"alias"`
}

func reportView(rep *resolve.Report, cat *catalog.Catalog) reportJSON {
	out := reportJSON{
		RunID:     rep.RunID.String(),
		SourceID:  rep.SourceID,
		CreatedAt: rep.CreatedAt.Format(time.RFC3339),
		Summary: summaryJSON{
			Accepted:      rep.Summary.Accepted,
			LowConfidence: rep.Summary.LowConfidence,
			Ambiguous:     rep.Summary.Ambiguous,
		},
	}
	for _, d := range rep.Decisions {
		name := string(d.Feature)
		category := ""
		if feat, ok := cat.Get(d.Feature); ok {
			name = feat.Name
			category = feat.Category
		}
		out.Decisions = append(out.Decisions, decisionJSON{
			Feature:    name,
			Category:   category,
			Outcome:    string(d.Outcome),
			Confidence: d.Confidence,
			Phrase:     d.Candidate.Phrase.Text,
			Alias:      d.Candidate.Alias,
		})
	}
	return out
}
