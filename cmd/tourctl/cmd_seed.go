package main

import (
	"fmt"

	"tourbook/internal/service"

	"github.com/spf13/cobra"
)

// tourctl seed
func newSeedCmd(boot bootFunc) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, users and tours from a seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := service.LoadSeedData(file)
			if err != nil {
				return err
			}
			e, err := boot()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := service.NewSeeder(e.store, e.logger).Apply(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories, %d users, %d tours\n", res.Categories, res.Users, res.Tours)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "configs/seed.yaml", "seed file")
	return cmd
}
