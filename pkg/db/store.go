package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/feature"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// CreateRun registers a new extraction run and returns its ID.
func CreateRun(db DBExecutor, language, mode string) (string, error) {
	if strings.TrimSpace(language) == "" {
		return "", fmt.Errorf("language must be non-empty")
	}
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO runs (id, language, mode, started_at) VALUES (?, ?, ?, ?)`,
		id, language, mode, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run.
func FinishRun(db DBExecutor, runID string, c RunCounts) error {
	res, err := db.Exec(`UPDATE runs SET finished_at = ?, total = ?, valid = ?, invalid = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), c.Total, c.Valid, c.Invalid, c.Failed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads a run.
func GetRun(db DBExecutor, runID string) (Run, error) {
	var r Run
	var finished sql.NullTime
	err := db.QueryRow(`SELECT id, language, mode, started_at, finished_at, total, valid, invalid, failed FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.Language, &r.Mode, &r.StartedAt, &finished, &r.Total, &r.Valid, &r.Invalid, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}

// UpsertProposition stores a dataset sentence, replacing text and label of
// an existing (proposal, sentence) pair, and returns its row id.
func UpsertProposition(db DBExecutor, p dataset.Proposition) (int64, error) {
	if p.ProposalID <= 0 || p.SentenceID <= 0 {
		return 0, fmt.Errorf("proposition ids must be positive, got %s", p.ID())
	}
	var id int64
	query := `INSERT INTO propositions (proposal_id, sentence_id, text, linker, category, sub_category)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(proposal_id, sentence_id)
			  DO UPDATE SET
			    text = excluded.text,
			    linker = excluded.linker,
			    category = excluded.category,
			    sub_category = excluded.sub_category
			  RETURNING id`
	err := db.QueryRow(query, p.ProposalID, p.SentenceID, p.Text,
		placeholder(p.Linker.Linker), placeholder(p.Linker.Category), placeholder(p.Linker.SubCategory)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert proposition %s: %w", p.ID(), err)
	}
	return id, nil
}

func placeholder(s string) string {
	if s == "" {
		return dataset.Placeholder
	}
	return s
}

// SavePropositions upserts props in one transaction.
func SavePropositions(ctx context.Context, conn *sql.DB, props []dataset.Proposition) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	for _, p := range props {
		if _, err := UpsertProposition(tx, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListPropositions returns the stored dataset ordered by proposal and sentence.
func ListPropositions(db DBExecutor) ([]dataset.Proposition, error) {
	rows, err := db.Query(`SELECT proposal_id, sentence_id, text, linker, category, sub_category FROM propositions ORDER BY proposal_id, sentence_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dataset.Proposition
	for rows.Next() {
		var p dataset.Proposition
		var linker, category, sub string
		if err := rows.Scan(&p.ProposalID, &p.SentenceID, &p.Text, &linker, &category, &sub); err != nil {
			return nil, err
		}
		p.Linker = lexicon.NewEntry(category, sub, "", linker)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveFeatures stores the valid records of a run as JSON payloads. Records
// are numbered from offset so a run written in several batches keeps input
// order. It returns the number of rows written.
func SaveFeatures(db DBExecutor, runID string, offset int, records []*feature.Record) (int, error) {
	n := 0
	for i, r := range records {
		if !r.Valid() {
			continue
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return n, fmt.Errorf("marshal %s: %w", r.ID, err)
		}
		_, err = db.Exec(`INSERT INTO features (run_id, record_id, position, payload) VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, record_id) DO UPDATE SET position = excluded.position, payload = excluded.payload`,
			runID, r.ID, offset+i, string(payload))
		if err != nil {
			return n, fmt.Errorf("insert features %s: %w", r.ID, err)
		}
		n++
	}
	return n, nil
}

// GetFeatures returns the records of a run in input order.
func GetFeatures(db DBExecutor, runID string) ([]*feature.Record, error) {
	rows, err := db.Query(`SELECT payload FROM features WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*feature.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r := &feature.Record{}
		if err := json.Unmarshal([]byte(payload), r); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		r.State = feature.Valid
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertProposal stores a proposal in the local proposals table.
func UpsertProposal(db DBExecutor, p dataset.Proposal) error {
	if p.ID <= 0 {
		return fmt.Errorf("proposal id must be positive, got %d", p.ID)
	}
	_, err := db.Exec(`INSERT INTO proposals (id, title, summary) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, summary = excluded.summary`,
		p.ID, p.Title, p.Summary)
	return err
}
