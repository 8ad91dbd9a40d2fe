package main

import (
	"github.com/spf13/cobra"

	"github.com/japaniel/argfeat/pkg/lexicon"
)

func newTaxonomyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the linker taxonomy as YAML",
		Long: `Taxonomy loads the linker lexicon of the configured language, applies the
valid and invalid filters and prints category -> subcategory -> linkers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, err := a.loadTaxonomy()
			if err != nil {
				return err
			}
			return lexicon.WriteYAML(cmd.OutOrStdout(), tax)
		},
	}
}
