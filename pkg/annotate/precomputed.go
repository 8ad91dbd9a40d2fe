package annotate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/normalize"
	"github.com/japaniel/argfeat/pkg/phrase"
)

// Record is one line of a pre-annotated JSON-lines file, as exported from an
// external pipeline (CoreNLP, Stanza, spaCy) run ahead of time.
type Record struct {
	Text      string             `json:"text"`
	Sentences []string           `json:"sentences,omitempty"`
	Tokens    []Token            `json:"tokens"`
	Tree      string             `json:"tree,omitempty"`
	Entities  []normalize.Entity `json:"entities,omitempty"`
}

// Precomputed serves annotations read from disk. It is immutable after
// construction; concurrent use is safe whenever the fallback's is.
type Precomputed struct {
	language string
	byText   map[string]*Record
	fallback Annotator
}

// LoadPrecomputed reads a JSON-lines annotation file. Texts missing from the
// file are delegated to fallback, or fail with ErrNotAnnotated when it is nil.
func LoadPrecomputed(path, language string, fallback Annotator, logger *zap.Logger) (*Precomputed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotations: %w", err)
	}
	defer f.Close()
	return ReadPrecomputed(f, language, fallback, logger)
}

// ReadPrecomputed is LoadPrecomputed over an arbitrary reader. Lines that do
// not decode are logged and skipped.
func ReadPrecomputed(r io.Reader, language string, fallback Annotator, logger *zap.Logger) (*Precomputed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Precomputed{language: language, byText: make(map[string]*Record), fallback: fallback}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warn("skipping malformed annotation line", zap.Int("line", line), zap.Error(err))
			continue
		}
		p.byText[key(rec.Text)] = &rec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	logger.Info("annotations loaded", zap.Int("texts", len(p.byText)))
	return p, nil
}

func key(text string) string { return strings.TrimSpace(text) }

// Len returns the number of annotated texts.
func (p *Precomputed) Len() int { return len(p.byText) }

// Language implements Annotator.
func (p *Precomputed) Language() string { return p.language }

// Annotate implements Annotator. A tree that fails to parse is dropped, not
// reported: the record still gets its lexical features.
func (p *Precomputed) Annotate(ctx context.Context, text string) (*Annotation, error) {
	rec, ok := p.byText[key(text)]
	if !ok {
		if p.fallback != nil {
			return p.fallback.Annotate(ctx, text)
		}
		return nil, fmt.Errorf("%w: %q", ErrNotAnnotated, text)
	}
	ann := &Annotation{
		Tokens:   append([]Token(nil), rec.Tokens...),
		Entities: append([]normalize.Entity(nil), rec.Entities...),
	}
	if rec.Tree != "" {
		if tree, err := phrase.Parse(rec.Tree); err == nil {
			ann.Tree = tree
		}
	}
	return ann, nil
}

// SplitSentences implements Annotator.
func (p *Precomputed) SplitSentences(ctx context.Context, text string) ([]string, error) {
	if rec, ok := p.byText[key(text)]; ok && len(rec.Sentences) > 0 {
		return append([]string(nil), rec.Sentences...), nil
	}
	if p.fallback != nil {
		return p.fallback.SplitSentences(ctx, text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return nil, errors.Join(ErrNotAnnotated, fmt.Errorf("no sentence split for %q", text))
}
