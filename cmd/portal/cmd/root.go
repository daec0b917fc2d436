package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/restaurant-portal/internal/app"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose    = false
	configFile = ""
	noBrowser  = false

	outputFormat = "yaml"
)

var (
	rootCmd = &cobra.Command{
		Use:           "portal",
		Short:         "Restaurant portal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if configFile != "" {
				if err := config.LoadFile(configFile); err != nil {
					return err
				}
			}
			setupLogging()
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	persistentFlags.StringVarP(&configFile, "config-file", "f", "", "YAML file of configuration variables")
	persistentFlags.StringVarP(&outputFormat, "output", "o", "yaml", "output format, yaml or json")
	persistentFlags.BoolVar(&noBrowser, "no-browser", false, "print login URLs instead of opening a browser")
}

func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("PRETTY_LOGS") != "false" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

// openApp builds the application and initializes the identity provider
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, config.New(), app.WithBrowserOpener(openBrowser))
	if err != nil {
		return nil, err
	}
	if err := a.Init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close application")
	}
}

func openBrowser(authURL string) error {
	fmt.Fprintf(os.Stderr, "Open this URL in a browser to continue:\n\n  %s\n\n", authURL)
	if noBrowser {
		return nil
	}

	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", authURL)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
	default:
		c = exec.Command("xdg-open", authURL)
	}
	if err := c.Start(); err != nil {
		log.Debug().Err(err).Msg("Could not launch a browser")
	}
	return nil
}
