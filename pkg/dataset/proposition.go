// Package dataset reads, writes and assembles the sentence-level dataset:
// proposal summaries split into sentences, each with the linker it was
// labelled with, if any.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/lexicon"
)

// Placeholder fills the linker columns of unlabelled sentences.
const Placeholder = "-"

var header = []string{"proposal_id", "sentence_id", "text", "linker_value", "category", "sub_category"}

// Proposition is one sentence of a proposal.
type Proposition struct {
	ProposalID int
	SentenceID int
	Text       string
	Linker     lexicon.Entry
}

// ID identifies the sentence as "<proposal>-<sentence>".
func (p Proposition) ID() string {
	return fmt.Sprintf("%d-%d", p.ProposalID, p.SentenceID)
}

func (p Proposition) String() string {
	return fmt.Sprintf("%s > %s [%s]", p.ID(), p.Text, p.Linker)
}

// Unlabelled returns the linker used for sentences without a label.
func Unlabelled() lexicon.Entry {
	return lexicon.Entry{
		Category:     Placeholder,
		SubCategory:  Placeholder,
		RelationType: Placeholder,
		Linker:       Placeholder,
	}
}

// ReadCSV reads a dataset file. The header is skipped. Rows with fewer than
// six fields, non-numeric IDs or an ID already seen are logged and skipped.
// When a row has more than six fields the text contained unquoted commas; the
// middle fields are joined back into the text and one stray quote is trimmed
// from each end. Six-field rows keep their text verbatim.
func ReadCSV(r io.Reader, logger *zap.Logger) ([]Proposition, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []Proposition
	seen := make(map[[2]int]struct{})
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn("skipping unparsable dataset row", zap.Int("line", line), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		if line == 1 {
			continue
		}
		n := len(row)
		if n < len(header) {
			logger.Warn("skipping short dataset row", zap.Int("line", line), zap.Int("fields", n))
			continue
		}
		proposalID, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
		sentenceID, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
		if err := errors.Join(err1, err2); err != nil {
			logger.Warn("skipping dataset row with bad id", zap.Int("line", line), zap.Error(err))
			continue
		}
		id := [2]int{proposalID, sentenceID}
		if _, dup := seen[id]; dup {
			logger.Warn("skipping duplicate dataset row", zap.Int("line", line),
				zap.Int("proposal_id", proposalID), zap.Int("sentence_id", sentenceID))
			continue
		}
		seen[id] = struct{}{}

		text := row[2]
		if n > len(header) {
			text = strings.Join(row[2:n-3], ",")
			text = strings.TrimPrefix(text, `"`)
			text = strings.TrimSuffix(text, `"`)
		}
		out = append(out, Proposition{
			ProposalID: proposalID,
			SentenceID: sentenceID,
			Text:       text,
			Linker:     lexicon.NewEntry(row[n-2], row[n-1], "", row[n-3]),
		})
	}
	return out, nil
}

// WriteCSV writes props with the dataset header. The text column is always
// quoted by the CSV writer when it needs to be.
func WriteCSV(w io.Writer, props []Proposition) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range props {
		row := []string{
			strconv.Itoa(p.ProposalID),
			strconv.Itoa(p.SentenceID),
			p.Text,
			orPlaceholder(p.Linker.Linker),
			orPlaceholder(p.Linker.Category),
			orPlaceholder(p.Linker.SubCategory),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// LoadCSV reads the dataset at path. A missing file is an empty dataset.
func LoadCSV(path string, logger *zap.Logger) ([]Proposition, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if logger != nil {
			logger.Warn("dataset file not found", zap.String("path", path))
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, logger)
}

// SaveCSV writes the dataset to path through a temporary file, so readers
// never see a half-written dataset.
func SaveCSV(path string, props []Proposition) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WriteCSV(w, props) })
}

// WriteFileAtomic writes to a temporary file next to path and renames it
// into place once write succeeds.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
