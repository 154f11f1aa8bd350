package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"stepup/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func newLoginCommand(appFn func() *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			var out models.AuthLoginResponse
			resp, err := a.client.HTTP().R().
				SetContext(cmd.Context()).
				SetBody(models.AuthLoginBody{Email: email, Password: password}).
				SetResult(&out).
				Post("/api/v1/auth/login")
			if err = checkResponse(resp, err); err != nil {
				return err
			}

			if err = a.session.write(out.AccessToken); err != nil {
				return err
			}
			a.logger.Debug("Session stored", zap.String("path", a.session.path))

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", email)
			if !out.MFAEnabled {
				fmt.Fprintln(cmd.OutOrStdout(), "No verified MFA device, protected actions will be refused.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise, so the password can be piped in.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
