package dataset

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

// Proposal is a citizen proposal whose summary is split into sentences.
type Proposal struct {
	ID      int
	Title   string
	Summary string
}

// ProposalSource lists proposals. When linkers is non-empty, sources may
// restrict the result to proposals whose summary mentions one of them.
type ProposalSource interface {
	Proposals(ctx context.Context, linkers []lexicon.Entry) ([]Proposal, error)
}

// Assembler builds the dataset from proposals.
type Assembler struct {
	annotator annotate.Annotator
	logger    *zap.Logger
}

// NewAssembler returns an Assembler that splits summaries with a.
func NewAssembler(a annotate.Annotator, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{annotator: a, logger: logger}
}

// Build splits every summary into sentences numbered from 1 and attaches
// the label of each sentence, or Unlabelled. Proposals are processed in ID
// order. A proposal whose summary cannot be split is logged and skipped.
func (a *Assembler) Build(ctx context.Context, proposals []Proposal, labels Labels) ([]Proposition, error) {
	sorted := append([]Proposal(nil), proposals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []Proposition
	labelled := 0
	for _, p := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sentences, err := a.annotator.SplitSentences(ctx, p.Summary)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("split proposal %d: %w", p.ID, err)
			}
			a.logger.Warn("skipping proposal", zap.Int("proposal_id", p.ID), zap.Error(err))
			continue
		}
		for i, s := range sentences {
			linker, ok := labels.Get(p.ID, i+1)
			if ok {
				labelled++
			} else {
				linker = Unlabelled()
			}
			out = append(out, Proposition{ProposalID: p.ID, SentenceID: i + 1, Text: s, Linker: linker})
		}
	}
	a.logger.Info("dataset assembled",
		zap.Int("proposals", len(sorted)),
		zap.Int("sentences", len(out)),
		zap.Int("labelled", labelled))
	return out, nil
}
