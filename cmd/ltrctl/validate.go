package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/ltr/registry"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [definitions-file]",
		Short: "Validate feature and model definitions",
		Long: `Build every feature store and model from a definitions file and report
the first configuration error, if any.

Examples:
  ltrctl validate ltr.yaml
  ltrctl validate --definitions ltr.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			path := cfg.Definitions
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no definitions file given")
			}

			defs, err := registry.LoadDefinitionsFile(path)
			if err != nil {
				return err
			}
			snap, err := registry.Build(defs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range snap.FeatureStoreNames() {
				fs, _ := snap.FeatureStore(name)
				fmt.Fprintf(out, "store %s: %d features\n", name, fs.Len())
			}
			for _, name := range snap.ModelNames() {
				m, _ := snap.Model(name)
				fmt.Fprintf(out, "model %s (%s) store=%s features=%v\n", name, m.Class(), m.FeatureStore().Name(), m.FeatureNames())
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}
