package feature

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/lexicon"
	"github.com/japaniel/argfeat/pkg/ngram"
	"github.com/japaniel/argfeat/pkg/normalize"
	"github.com/japaniel/argfeat/pkg/phrase"
)

// Mode selects the extraction strategy.
type Mode string

const (
	ModeDetection      Mode = "ARG_DET"
	ModeClassification Mode = "ARG_CLF"
)

var (
	// ErrNotImplemented is returned by strategies without a feature set yet.
	ErrNotImplemented = errors.New("feature: extraction mode not implemented")
	// ErrUnknownMode is returned by ParseMode and NewStrategy.
	ErrUnknownMode = errors.New("feature: unknown extraction mode")
)

// ParseMode accepts the mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeDetection:
		return ModeDetection, nil
	case ModeClassification:
		return ModeClassification, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Input is one sentence to extract. Lexicon should be sorted longest first.
type Input struct {
	ID      string
	Text    string
	Lexicon []lexicon.Entry
}

// Strategy computes a record from one sentence. Implementations keep no
// per-call state and may be shared between goroutines as long as their
// annotator can.
type Strategy interface {
	Extract(ctx context.Context, in Input) (*Record, error)
	Mode() Mode
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	Annotator  annotate.Annotator
	Normalizer *normalize.Normalizer
	Stopwords  normalize.Stopwords
}

// NewStrategy builds the strategy for mode. A nil Normalizer or Stopwords
// defaults to the annotator's language.
func NewStrategy(mode Mode, deps Deps) (Strategy, error) {
	if deps.Annotator == nil {
		return nil, errors.New("feature: nil annotator")
	}
	lang := deps.Annotator.Language()
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New(lang, nil)
	}
	if deps.Stopwords == nil {
		deps.Stopwords = normalize.StopwordsFor(lang)
	}
	switch mode {
	case ModeDetection:
		return &Detection{deps: deps}, nil
	case ModeClassification:
		return &Classification{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Detection extracts the argument-detection feature set.
type Detection struct {
	deps Deps
}

func (d *Detection) Mode() Mode { return ModeDetection }

// Extract annotates in.Text and builds its record. Texts shorter than
// MinLength and sentences without a single content token come back as
// Invalid records with a nil error; only annotator failures are errors.
//
// Lengths are counted in runes. The average word length is the truncated
// integer mean.
func (d *Detection) Extract(ctx context.Context, in Input) (*Record, error) {
	rec := &Record{
		ID:           in.ID,
		TextLength:   utf8.RuneCountInString(in.Text),
		TextPosition: SentencePosition(in.ID),
	}
	if rec.TextLength < MinLength {
		rec.State = Invalid
		return rec, nil
	}

	ann, err := d.deps.Annotator.Annotate(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", in.ID, err)
	}
	if ann == nil {
		ann = &annotate.Annotation{}
	}
	rec.TokenCount = len(ann.Tokens)

	var b builder
	for _, tok := range ann.Tokens {
		b.add(d.deps.Normalizer, tok)
	}
	if len(b.words) == 0 {
		rec.State = Invalid
		return rec, nil
	}

	rec.BowUnigrams = b.words
	rec.PosUnigrams = b.tags
	rec.Adverbs = b.adverbs
	rec.Verbs = b.verbs
	rec.Nouns = b.nouns
	rec.ModalAuxs = b.auxs
	rec.Punctuation = b.punct
	rec.AvgWordLength = b.chars / len(b.words)
	rec.PunctMarksCount = len(b.punct)

	rec.BowBigrams = ngram.Bigrams(b.words)
	rec.BowTrigrams = ngram.Trigrams(b.words)
	rec.PosBigrams = ngram.Bigrams(b.tags)

	rec.Entities = normalize.FilterEntities(ann.Entities, d.deps.Stopwords)

	phrases := phrase.Collect(ann.Tree)
	rec.ParseTreeDepth = phrase.MaxDepth(phrases)
	rec.SubClausesCount = len(phrases)

	rec.WordCouples = ngram.WordCouples(b.words)
	rec.KeyWords = ngram.MatchLinkers(b.words, in.Lexicon)

	rec.fill()
	rec.State = Valid
	return rec, nil
}

// builder accumulates the token lists of a single Extract call.
type builder struct {
	words, tags                 []string
	verbs, adverbs, auxs, nouns []string
	punct                       []string
	chars                       int
}

func (b *builder) add(n *normalize.Normalizer, tok annotate.Token) {
	res := n.Classify(tok.Word, tok.POS)
	switch res.Kind {
	case normalize.Punctuation:
		b.punct = append(b.punct, res.Text)
		return
	case normalize.Discarded:
		return
	}

	b.words = append(b.words, res.Text)
	b.tags = append(b.tags, tok.POS)
	b.chars += utf8.RuneCountInString(res.Text)

	switch normalize.POSBucket(res.Text, tok.POS) {
	case normalize.VerbBucket:
		b.verbs = append(b.verbs, res.Text)
	case normalize.AdvBucket:
		b.adverbs = append(b.adverbs, res.Text)
	case normalize.AuxBucket:
		b.auxs = append(b.auxs, res.Text)
	case normalize.NounBucket:
		b.nouns = append(b.nouns, res.Text)
	}
}

// Classification is the argument-classification strategy. Its feature set
// has not been defined; Extract always fails with ErrNotImplemented.
type Classification struct{}

func (c *Classification) Mode() Mode { return ModeClassification }

func (c *Classification) Extract(ctx context.Context, in Input) (*Record, error) {
	return nil, fmt.Errorf("%s: %w", ModeClassification, ErrNotImplemented)
}
