package main

import (
	"context"
	"fmt"

	"stepup/internal/configuration"
	"stepup/internal/models"
	"stepup/internal/stepup"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func newApproveCommand(appFn func() *app) *cobra.Command {
	var comments string

	cmd := &cobra.Command{
		Use:   "approve <position-id>",
		Short: "Approve a position, verifying your identity when asked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			positionID := args[0]

			session, err := a.session.read()
			if err != nil {
				return err
			}

			var approval models.PositionApproval
			observer := newTerminalObserver(cmd.InOrStdin(), cmd.ErrOrStderr())
			resp, err := a.elevator.CallProtected(cmd.Context(),
				configuration.ActionApprovePosition,
				stepup.RequestContext{PositionID: positionID},
				observer,
				func(ctx context.Context, token string) (*resty.Response, error) {
					req := a.client.HTTP().R().
						SetContext(ctx).
						SetAuthToken(session).
						SetBody(models.PositionApproveBody{Comments: comments}).
						SetResult(&approval)
					if token != "" {
						req.SetHeader(stepup.HeaderElevatedToken, token)
					}
					return req.Post(fmt.Sprintf("/api/v1/positions/%s/approve", positionID))
				})
			if err = checkResponse(resp, err); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Position %s approved at stage %d.\n", positionID, approval.Stage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&comments, "comments", "m", "", "comments recorded with the approval")
	return cmd
}
