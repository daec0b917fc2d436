package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/restaurant-portal/account"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().Bool("update-password", false, "ask the provider to change the password after signing in")

	registerCmd.Flags().String("email", "", "create the account through the admin API with this email")
	registerCmd.Flags().String("first-name", "", "first name of the new account")
	registerCmd.Flags().String("last-name", "", "last name of the new account")
	registerCmd.Flags().String("date-of-birth", "", "date of birth, YYYY-MM-DD")
	registerCmd.Flags().String("gender", "", "male, female or other")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		opts := identity.LoginOptions{}
		if updatePassword, _ := cmd.Flags().GetBool("update-password"); updatePassword {
			opts.Action = identity.ActionUpdatePassword
		}
		switch {
		case opts.Action != "":
		case a.Session.Snapshot().LoggedIn:
			a.Session.Logout(ctx)
		default:
			a.Session.ClearPersisted(ctx)
		}
		if err := a.Identity.Login(ctx, opts); err != nil {
			return err
		}
		return printSignedIn(cmd, a.Session.FetchUserInfo)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account, then sign in through the browser",
	Long: `Without --email the provider's registration page is opened in the browser.
With --email the account is created through the admin API from the given details
and the password read from stdin, then a browser login follows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		a.Session.ClearPersisted(ctx)
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			if err := a.Identity.Register(ctx); err != nil {
				return err
			}
			return printSignedIn(cmd, a.Session.FetchUserInfo)
		}

		reg, err := registrationFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := a.Account.Register(ctx, reg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Account %s created, signing in\n", reg.Email)

		if err := a.Identity.Login(ctx, identity.LoginOptions{}); err != nil {
			return err
		}
		return printSignedIn(cmd, a.Session.FetchUserInfo)
	},
}

func registrationFromFlags(cmd *cobra.Command) (account.Registration, error) {
	flags := cmd.Flags()
	reg := account.Registration{}
	reg.Email, _ = flags.GetString("email")
	reg.FirstName, _ = flags.GetString("first-name")
	reg.LastName, _ = flags.GetString("last-name")
	reg.DateOfBirth, _ = flags.GetString("date-of-birth")
	reg.Gender, _ = flags.GetString("gender")

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return reg, fmt.Errorf("read password: %w", err)
	}
	reg.Password = strings.TrimRight(line, "\r\n")
	return reg, nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		a.Session.Logout(ctx)
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}
