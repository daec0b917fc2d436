package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if !a.Session.Snapshot().LoggedIn {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		info, err := a.Session.FetchUserInfo(ctx)
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), info)
	},
}

func printSignedIn(cmd *cobra.Command, fetch func(context.Context) (*session.UserInfo, error)) error {
	info, err := fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("signed in, but the user info could not be read: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", info.FullName)
	return nil
}

func writeValue(w io.Writer, v any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
