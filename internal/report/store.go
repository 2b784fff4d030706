package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"stickermap/internal/catalog"
	"stickermap/internal/match"
	"stickermap/internal/resolve"
	"stickermap/internal/tokenize"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS reports (
	run_id         TEXT PRIMARY KEY,
	source_id      TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	accepted       INTEGER NOT NULL,
	low_confidence INTEGER NOT NULL,
	ambiguous      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_source ON reports(source_id);

CREATE TABLE IF NOT EXISTS decisions (
	run_id     TEXT NOT NULL REFERENCES reports(run_id),
	seq        INTEGER NOT NULL,
	feature_id TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	confidence REAL NOT NULL,
	phrase     TEXT NOT NULL,
	alias      TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Store persists mapping reports for the reporting side. The engine itself
// never reads back past decisions; feature text legitimately repeats with
// different ground truth per vehicle, so there is no cross-document cache.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init report schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes one report and its decisions atomically.
func (s *Store) Save(ctx context.Context, rep *resolve.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (run_id, source_id, created_at, accepted, low_confidence, ambiguous)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.RunID.String(), rep.SourceID, rep.CreatedAt.Format(time.RFC3339Nano),
		rep.Summary.Accepted, rep.Summary.LowConfidence, rep.Summary.Ambiguous,
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rep.RunID, err)
	}

	for i, d := range rep.Decisions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO decisions (run_id, seq, feature_id, outcome, confidence, phrase, alias)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID.String(), i, string(d.Feature), string(d.Outcome), d.Confidence,
			d.Candidate.Phrase.Text, d.Candidate.Alias,
		)
		if err != nil {
			return fmt.Errorf("insert decision %d of %s: %w", i, rep.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", rep.RunID, err)
	}
	s.logger.Debug("report saved", "run_id", rep.RunID, "source_id", rep.SourceID, "decisions", len(rep.Decisions))
	return nil
}

// Get loads one report with its decisions. The supporting candidate carries
// the stored phrase text and alias; the originating text block is not kept.
func (s *Store) Get(ctx context.Context, runID uuid.UUID) (*resolve.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source_id, created_at, accepted, low_confidence, ambiguous
		 FROM reports WHERE run_id = ?`, runID.String())

	var rep resolve.Report
	var createdAt string
	rep.RunID = runID
	if err := row.Scan(&rep.SourceID, &createdAt, &rep.Summary.Accepted, &rep.Summary.LowConfidence, &rep.Summary.Ambiguous); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report %s: %w", runID, err)
		}
		return nil, fmt.Errorf("query report %s: %w", runID, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", runID, err)
	}
	rep.CreatedAt = ts

	decisions, err := s.loadDecisions(ctx, runID)
	if err != nil {
		return nil, err
	}
	rep.Decisions = decisions
	return &rep, nil
}

// ListBySource loads all reports for one source identifier, newest first.
func (s *Store) ListBySource(ctx context.Context, sourceID string) ([]*resolve.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM reports WHERE source_id = ? ORDER BY created_at DESC`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query reports for %s: %w", sourceID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan run_id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse run_id %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*resolve.Report, 0, len(ids))
	for _, id := range ids {
		rep, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// ListAll loads every stored report, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]*resolve.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM reports ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan run_id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse run_id %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*resolve.Report, 0, len(ids))
	for _, id := range ids {
		rep, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func (s *Store) loadDecisions(ctx context.Context, runID uuid.UUID) ([]resolve.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT feature_id, outcome, confidence, phrase, alias
		 FROM decisions WHERE run_id = ? ORDER BY seq ASC`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query decisions of %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []resolve.Decision
	for rows.Next() {
		var d resolve.Decision
		var feature, outcome, phrase, alias string
		if err := rows.Scan(&feature, &outcome, &d.Confidence, &phrase, &alias); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Feature = catalog.FeatureID(feature)
		d.Outcome = resolve.Outcome(outcome)
		d.Candidate = match.Candidate{
			Phrase:  tokenize.CandidatePhrase{Text: phrase},
			Feature: d.Feature,
			Score:   d.Confidence,
			Alias:   alias,
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
