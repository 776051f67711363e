package main

import (
	"fmt"
	"os"

	"github.com/agriconnectke/marketplace-service/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(c *cli) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories and subscription packages from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			data, err := seed.Parse(f)
			if err != nil {
				return err
			}

			svc, err := newServices(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := seed.NewSeeder(svc.categories, svc.categoryRepo, svc.subscriptions, svc.subscriptionRepo, c.log).
				Apply(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories created: %d, packages created: %d, skipped: %d\n",
				report.Categories, report.Packages, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "seed.yaml", "seed file")
	return cmd
}
