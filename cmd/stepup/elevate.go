package main

import (
	"fmt"

	"stepup/internal/stepup"

	"github.com/spf13/cobra"
)

func newElevateCommand(appFn func() *app) *cobra.Command {
	var positionID string

	cmd := &cobra.Command{
		Use:   "elevate <action>",
		Short: "Complete a step-up challenge and print the elevated token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()

			observer := newTerminalObserver(cmd.InOrStdin(), cmd.ErrOrStderr())
			token, err := a.elevator.RequestElevation(cmd.Context(), args[0],
				stepup.RequestContext{PositionID: positionID}, observer)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token.Token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&positionID, "position", "p", "", "position the elevation is bound to")
	return cmd
}
