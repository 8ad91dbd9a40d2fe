package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/db"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

type datasetOptions struct {
	output string
	urls   []string
	all    bool
}

func newDatasetCmd(a *app) *cobra.Command {
	opts := &datasetOptions{}
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build the proposition CSV from proposals",
		Long: `Dataset splits proposal summaries into sentences, numbers them from 1 and
attaches the linker labels of the annotation file, writing the proposition
CSV read by extract.

Proposals come from the proposal store (store.driver, store.proposals_dsn),
keeping only summaries that mention a linker of the lexicon, or from web
pages given with --url.

Examples:
  # From the MySQL proposal database
  ARGFEAT_STORE_PROPOSALS_DSN='user:pw@tcp(db:3306)/decide' argfeat dataset

  # From two web pages
  argfeat dataset --url https://example.org/a --url https://example.org/b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			output := firstNonEmpty(opts.output, cfg.LangPath(cfg.Dataset.Path))

			var lex []lexicon.Entry
			if !opts.all {
				tax, err := a.loadTaxonomy()
				if err != nil {
					return fmt.Errorf("load lexicon: %w", err)
				}
				lex = tax.Lexicon(true)
			}
			ann, err := a.newAnnotator(1)
			if err != nil {
				return err
			}
			if err := a.buildDataset(cmd.Context(), ann, lex, output, opts.urls); err != nil {
				return err
			}
			cmd.Printf("Dataset written to %s\n", output)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "proposition CSV (default dataset.path)")
	f.StringArrayVar(&opts.urls, "url", nil, "web page to use as a proposal (repeatable)")
	f.BoolVar(&opts.all, "all", false, "keep proposals without any linker")
	return cmd
}

// buildDataset assembles the propositions and writes them to output. With
// urls the pages are fetched, otherwise the proposal store is queried.
func (a *app) buildDataset(ctx context.Context, ann annotate.Annotator, lex []lexicon.Entry, output string, urls []string) error {
	cfg := a.cfg
	logger := a.logger

	var proposals []dataset.Proposal
	if len(urls) > 0 {
		fetcher := dataset.NewFetcher()
		for i, u := range urls {
			p, err := fetcher.Fetch(ctx, i+1, u)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", u, err)
			}
			logger.Info("fetched proposal", zap.String("url", u), zap.String("title", p.Title))
			proposals = append(proposals, p)
		}
	} else {
		if cfg.Store.ProposalsDSN == "" {
			return fmt.Errorf("no proposal source: set store.proposals_dsn or pass --url")
		}
		src, err := db.OpenProposalStore(ctx, cfg.Store.Driver, cfg.Store.ProposalsDSN)
		if err != nil {
			return err
		}
		defer src.Close()
		proposals, err = src.Proposals(ctx, lex)
		if err != nil {
			return err
		}
	}
	logger.Info("proposals selected", zap.Int("count", len(proposals)))

	labels, err := dataset.LoadLabels(cfg.LangPath(cfg.Dataset.AnnotationsPath), logger)
	if err != nil {
		return err
	}

	props, err := dataset.NewAssembler(ann, logger).Build(ctx, proposals, labels)
	if err != nil {
		return err
	}
	if err := dataset.SaveCSV(output, props); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	if cfg.Store.DSN != "" {
		store, err := db.Open(cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
		for _, p := range proposals {
			if err := db.UpsertProposal(store, p); err != nil {
				return err
			}
		}
		if err := db.SavePropositions(ctx, store, props); err != nil {
			return fmt.Errorf("store propositions: %w", err)
		}
	}
	return nil
}
