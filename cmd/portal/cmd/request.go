package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(requestCmd)
	flags := requestCmd.Flags()
	flags.StringToStringP("query", "q", nil, "query parameter, repeatable (k=v)")
	flags.StringArrayP("header", "H", nil, "request header, repeatable (Name: value)")
	flags.StringP("data", "d", "", "request body")
	flags.Bool("no-auth", false, "send without the bearer credential")
}

var requestCmd = &cobra.Command{
	Use:   "request METHOD URL",
	Short: "Send a request through the authenticated gateway",
	Long:  "Send a request through the authenticated gateway. Paths starting with / are relative to API_URL.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		params, _ := flags.GetStringToString("query")
		rawHeaders, _ := flags.GetStringArray("header")
		data, _ := flags.GetString("data")
		noAuth, _ := flags.GetBool("no-auth")

		header := http.Header{}
		for _, h := range rawHeaders {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("header %q is not in Name: value form", h)
			}
			header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		opts := gateway.Options{
			Method:       strings.ToUpper(args[0]),
			Header:       header,
			Params:       params,
			AuthRequired: utils.Ptr(!noAuth),
		}
		if data != "" {
			opts.Body = data
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		resp, err := a.Gateway.Request(ctx, args[1], opts)
		if apiErr, ok := gateway.AsAPIError(err); ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d %s\n", apiErr.Status, http.StatusText(apiErr.Status))
			if apiErr.Data != nil {
				_ = writeValue(cmd.OutOrStdout(), apiErr.Data)
			}
			return err
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.Data != nil {
			return writeValue(cmd.OutOrStdout(), resp.Data)
		}
		_, err = cmd.OutOrStdout().Write(resp.Body)
		return err
	},
}
