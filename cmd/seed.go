package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func promptPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func newSeedAdminCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account if it does not exist",
		Long: "Create the admin account if it does not exist. The password comes from " +
			"admin_password / CAREERQUIZ_ADMIN_PASSWORD, or is prompted for.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if username == "" {
				username = a.cfg.AdminUsername
			}

			password := a.cfg.AdminPassword
			if password == "" {
				out := cmd.ErrOrStderr()
				if password, err = promptPassword(out, "Admin password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				confirm, err := promptPassword(out, "Confirm password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				if password != confirm {
					return errors.New("passwords do not match")
				}
			}
			if password == "" {
				return errors.New("password is empty")
			}

			created, err := a.auth.SeedAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "account %q already exists\n", username)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (defaults to admin_username from the config)")
	return cmd
}
