package cmd

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.Flags().Bool("all", false, "include entries hidden from the menu")
	menuCmd.Flags().Int("item", 0, "print only the subtree under the entry with this id")
}

var menuCmd = &cobra.Command{
	Use:   "menu [appCode]",
	Short: "Print the sitemap menu tree of an application",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCode := portal.DefaultAppCode
		if len(args) == 1 {
			appCode = args[0]
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		menu, err := a.Portal.Sitemap(ctx, appCode)
		if err != nil {
			return err
		}
		if all, _ := cmd.Flags().GetBool("all"); !all {
			menu = menu.Visible()
		}
		if id, _ := cmd.Flags().GetInt("item"); id != 0 {
			item, ok := menu.Find(id)
			if !ok {
				return fmt.Errorf("no menu entry with id %d in %s", id, appCode)
			}
			menu = portal.Menu{item}
		}

		out := cmd.OutOrStdout()
		menu.Walk(func(item portal.MenuItem, depth int) bool {
			line := strings.Repeat("  ", depth) + item.Label
			if route := item.Route(); route != "" {
				line += "  " + route
			}
			fmt.Fprintln(out, line)
			return true
		})
		fmt.Fprintf(out, "%d entries\n", menu.Count())
		return nil
	},
}
