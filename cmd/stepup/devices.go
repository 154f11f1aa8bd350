package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"stepup/internal/configuration"
	"stepup/internal/models"
	"stepup/internal/stepup"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func newDevicesCommand(appFn func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage MFA devices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List verified MFA devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listDevices(cmd, appFn())
			},
		},
		&cobra.Command{
			Use:   "remove <device-id>",
			Short: "Remove an MFA device, verifying your identity first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return removeDevice(cmd, appFn(), args[0])
			},
		},
	)
	return cmd
}

func listDevices(cmd *cobra.Command, a *app) error {
	session, err := a.session.read()
	if err != nil {
		return err
	}

	var out models.MFADevicesListResponse
	resp, err := a.client.HTTP().R().
		SetContext(cmd.Context()).
		SetAuthToken(session).
		SetResult(&out).
		Get("/api/v1/mfa/devices")
	if err = checkResponse(resp, err); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tDEFAULT")
	for _, d := range out.Devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.ID, d.Name, d.Type, d.IsDefault)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d devices\n", out.DeviceCount, out.MaxDevices)
	return nil
}

func removeDevice(cmd *cobra.Command, a *app, deviceID string) error {
	session, err := a.session.read()
	if err != nil {
		return err
	}

	observer := newTerminalObserver(cmd.InOrStdin(), cmd.ErrOrStderr())
	resp, err := a.elevator.CallProtected(cmd.Context(),
		configuration.ActionRemoveMFADevice,
		stepup.RequestContext{},
		observer,
		func(ctx context.Context, token string) (*resty.Response, error) {
			req := a.client.HTTP().R().
				SetContext(ctx).
				SetAuthToken(session)
			if token != "" {
				req.SetHeader(stepup.HeaderElevatedToken, token)
			}
			return req.Delete("/api/v1/mfa/devices/" + deviceID)
		})
	if err = checkResponse(resp, err); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Device %s removed.\n", deviceID)
	return nil
}
