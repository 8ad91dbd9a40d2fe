package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/feature"
	"github.com/japaniel/argfeat/pkg/pipeline"
)

func newSimpleCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "simple [text]",
		Short: "Extract the features of one text",
		Long: `Simple splits a text into sentences and prints the feature record of each
one as JSON. The text is taken from the arguments or, without arguments,
from stdin.

Examples:
  argfeat simple "Sin embargo, el gasto creció."
  echo "Queremos más parques porque faltan." | argfeat simple`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no text given")
			}

			m, err := feature.ParseMode(firstNonEmpty(mode, a.cfg.Extract.Mode))
			if err != nil {
				return err
			}
			tax, err := a.loadTaxonomy()
			if err != nil {
				return err
			}
			ann, err := a.newAnnotator(1)
			if err != nil {
				return err
			}
			strategy, err := a.newStrategy(m, ann)
			if err != nil {
				return err
			}

			sentences, err := ann.SplitSentences(cmd.Context(), text)
			if err != nil {
				return err
			}
			props := make([]dataset.Proposition, len(sentences))
			for i, s := range sentences {
				props[i] = dataset.Proposition{SentenceID: i + 1, Text: s}
			}

			runner := pipeline.NewRunner(strategy, 1)
			runner.Timeout = a.cfg.Extract.Timeout
			runner.Logger = a.logger
			res, err := runner.Run(cmd.Context(), props, tax.Lexicon(true))
			if err != nil {
				return err
			}
			_, err = feature.WriteJSON(cmd.OutOrStdout(), res.Records)
			return err
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "extraction mode: ARG_DET or ARG_CLF")
	return cmd
}
