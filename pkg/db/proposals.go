package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

// ProposalStore reads proposals from a "proposals(id, title, summary)"
// table. It works against the local sqlite store and against the MySQL
// database of the participation platform alike.
type ProposalStore struct {
	db *sql.DB
}

var _ dataset.ProposalSource = (*ProposalStore)(nil)

// NewProposalStore wraps an open connection.
func NewProposalStore(db *sql.DB) *ProposalStore {
	return &ProposalStore{db: db}
}

// OpenProposalStore connects to driver ("mysql" or "sqlite3") at dsn.
func OpenProposalStore(ctx context.Context, driver, dsn string) (*ProposalStore, error) {
	switch driver {
	case "mysql", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported proposals driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &ProposalStore{db: conn}, nil
}

// Close closes the underlying connection.
func (s *ProposalStore) Close() error { return s.db.Close() }

// Proposals returns the proposals ordered by id. With a non-empty lexicon
// only summaries mentioning one of its linkers as a word are returned: after
// a space, a comma or an ellipsis, and followed by a space.
func (s *ProposalStore) Proposals(ctx context.Context, linkers []lexicon.Entry) ([]dataset.Proposal, error) {
	query, args := proposalsQuery(linkers)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select proposals: %w", err)
	}
	defer rows.Close()

	var out []dataset.Proposal
	for rows.Next() {
		var p dataset.Proposal
		var title, summary sql.NullString
		if err := rows.Scan(&p.ID, &title, &summary); err != nil {
			return nil, err
		}
		p.Title = title.String
		p.Summary = summary.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func proposalsQuery(linkers []lexicon.Entry) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT id, title, summary FROM proposals")

	var args []interface{}
	seen := make(map[string]struct{})
	for _, e := range linkers {
		l := strings.TrimSpace(e.Linker)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		if len(args) == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" OR ")
		}
		b.WriteString("(summary LIKE ? ESCAPE '!' OR summary LIKE ? ESCAPE '!' OR summary LIKE ? ESCAPE '!')")
		l = likeEscaper.Replace(l)
		args = append(args, "% "+l+" %", "%,"+l+" %", "%..."+l+" %")
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args
}

// likeEscaper escapes LIKE wildcards with '!', the ESCAPE character of
// proposalsQuery.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
