package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var successColor = color.New(color.FgGreen)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
			if err != nil {
				return err
			}
			username, err := getSimpleText(a.reader, "Pick a username (3-20 letters, digits or underscores)", os.Stdout)
			if err != nil {
				return err
			}
			password, err := getPassword(os.Stdout)
			if err != nil {
				return err
			}

			if err := a.Auth.Register(cmd.Context(), email, password, username); err != nil {
				return err
			}
			successColor.Fprintf(a.out, "Welcome, %s!\n", username)
			return a.Sync.Sync(cmd.Context(), "register")
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with email or username",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			identifier, err := getSimpleText(a.reader, "Email or username", os.Stdout)
			if err != nil {
				return err
			}
			password, err := getPassword(os.Stdout)
			if err != nil {
				return err
			}

			if err := a.Auth.SignIn(cmd.Context(), identifier, password); err != nil {
				return err
			}
			successColor.Fprintln(a.out, "Signed in.")

			// pull the account's saves down right away
			if err := a.Sync.Sync(cmd.Context(), "login"); err != nil {
				fmt.Fprintf(a.out, "initial sync failed, will retry on next sync: %v\n", err)
			}
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to guest mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.Auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out. Saved concerts stay on this device.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			owner := a.Session.Current()
			if owner.IsGuest() {
				fmt.Fprintln(a.out, "guest")
				return nil
			}

			profile, err := a.Auth.Profile(cmd.Context())
			if err != nil || profile == nil {
				fmt.Fprintln(a.out, owner.ID())
				return nil
			}
			fmt.Fprintf(a.out, "%s (%s)\n", profile.Username, profile.Email)
			return nil
		},
	}
}

func newDeleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete the account and everything it owns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			answer, err := getSimpleText(a.reader, "This removes your reviews, votes, saves and profile. Type 'delete' to confirm", os.Stdout)
			if err != nil {
				return err
			}
			if answer != "delete" {
				fmt.Fprintln(a.out, "Aborted.")
				return nil
			}

			if err := a.Sync.DeleteAllOwnedContent(cmd.Context()); err != nil {
				return err
			}
			if err := a.Auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Account deleted.")
			return nil
		},
	}
}
