package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the database schema",
		Long:  "Creates the criteria, formula, attribute and axis_setting tables if they do not exist. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	// OpenStore migrates as part of opening.
	cfg, st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Database.Driver)
	return nil
}
