package main

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/spf13/cobra"
)

var resetConfirmed bool

func getResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Deletes every row, column, cell and axis setting",
		Long:  "Empties the matrix in one transaction. This is a destructive operation; export first if the data matters.",
		Args:  cobra.NoArgs,
		RunE:  runReset,
	}
	cmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")
	return cmd
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirmed {
		return errors.New("refusing to reset without --yes")
	}

	svc, closeFn, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.Reset(cmd.Context())
	if err != nil {
		return fmt.Errorf("reset: %s", core.FormatUserError(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Matrix reset: removed %d rows, %d columns, %d cells, %d axis settings\n",
		res.Formulas, res.Criteria, res.Cells, res.AxisSettings)
	return nil
}
