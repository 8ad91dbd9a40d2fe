// Package annotate defines the NLP collaborator the feature extractor talks
// to and a few adapters for it.
//
// An Annotator is NOT assumed to be safe for concurrent use: heavyweight
// taggers and parsers usually keep internal buffers. Code that shares one
// across goroutines must wrap it with Serialized, or hand each worker its own
// instance through a Pool.
package annotate

import (
	"context"
	"errors"

	"github.com/japaniel/argfeat/pkg/normalize"
	"github.com/japaniel/argfeat/pkg/phrase"
)

// Token is a word form with its Universal POS tag.
type Token struct {
	Word string `json:"word"`
	POS  string `json:"pos"`
}

// Annotation is everything the extractor needs from one sentence. Tree may
// be nil when the annotator has no parser.
type Annotation struct {
	Tokens   []Token
	Tree     *phrase.Tree
	Entities []normalize.Entity
}

// Annotator tokenizes, tags and (optionally) parses text.
type Annotator interface {
	// Annotate analyzes a single sentence.
	Annotate(ctx context.Context, text string) (*Annotation, error)
	// SplitSentences divides a paragraph into sentences.
	SplitSentences(ctx context.Context, text string) ([]string, error)
	// Language returns the ISO 639-1 code the annotator works on.
	Language() string
}

var (
	// ErrTimeout is returned when an annotation call exceeds its deadline.
	ErrTimeout = errors.New("annotate: timed out")
	// ErrNotAnnotated is returned by Precomputed for unknown texts.
	ErrNotAnnotated = errors.New("annotate: no annotation for text")
)
