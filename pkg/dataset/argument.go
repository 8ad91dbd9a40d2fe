package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/lexicon"
)

// ArgumentID identifies an argument annotated in a proposal comment, written
// "<proposal>-<comment>-<sequence>".
type ArgumentID struct {
	Proposal int
	Comment  int
	Sequence int
}

// ParseArgumentID parses a three-part argument identifier.
func ParseArgumentID(s string) (ArgumentID, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return ArgumentID{}, fmt.Errorf("argument id %q: want 3 parts, got %d", s, len(parts))
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ArgumentID{}, fmt.Errorf("argument id %q: %w", s, err)
		}
		nums[i] = n
	}
	return ArgumentID{Proposal: nums[0], Comment: nums[1], Sequence: nums[2]}, nil
}

func (a ArgumentID) String() string {
	return fmt.Sprintf("%d-%d-%d", a.Proposal, a.Comment, a.Sequence)
}

// Label marks a proposal sentence as argumentative. ArgumentID is
// "<proposal>-<sentence>".
type Label struct {
	ArgumentID string        `json:"argumentId"`
	Linker     lexicon.Entry `json:"linker"`
}

// Labels indexes linkers by proposal and sentence number.
type Labels map[int]map[int]lexicon.Entry

// Get returns the linker of a sentence.
func (l Labels) Get(proposal, sentence int) (lexicon.Entry, bool) {
	e, ok := l[proposal][sentence]
	return e, ok
}

// Add records a label, replacing any earlier one for the same sentence.
func (l Labels) Add(proposal, sentence int, linker lexicon.Entry) {
	if l[proposal] == nil {
		l[proposal] = make(map[int]lexicon.Entry)
	}
	l[proposal][sentence] = linker
}

// Len counts labelled sentences.
func (l Labels) Len() int {
	n := 0
	for _, m := range l {
		n += len(m)
	}
	return n
}

// ReadLabels reads JSON-lines labels. Lines that do not decode, and IDs that
// are not two integers, are logged and skipped.
func ReadLabels(r io.Reader, logger *zap.Logger) (Labels, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	labels := make(Labels)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var lb Label
		if err := json.Unmarshal([]byte(raw), &lb); err != nil {
			logger.Warn("skipping malformed label", zap.Int("line", line), zap.Error(err))
			continue
		}
		parts := strings.Split(lb.ArgumentID, "-")
		if len(parts) != 2 {
			logger.Warn("skipping label with bad argument id", zap.Int("line", line), zap.String("argument_id", lb.ArgumentID))
			continue
		}
		proposal, err1 := strconv.Atoi(parts[0])
		sentence, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			logger.Warn("skipping label with bad argument id", zap.Int("line", line), zap.String("argument_id", lb.ArgumentID))
			continue
		}
		linker := lexicon.NewEntry(lb.Linker.Category, lb.Linker.SubCategory, lb.Linker.RelationType, lb.Linker.Linker)
		labels.Add(proposal, sentence, linker)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// LoadLabels reads labels from path. An empty path means no labels.
func LoadLabels(path string, logger *zap.Logger) (Labels, error) {
	if path == "" {
		return Labels{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ReadLabels(f, logger)
}
