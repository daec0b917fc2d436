package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/restaurant-portal/internal/app"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portal on the configured port",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		displayAppname(cfg.GetAppName())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeApp(a)

		// an unreachable provider still resolves the session; pages report the failure
		if err := a.Init(ctx); err != nil {
			log.Err(err).Msg("Identity provider unavailable")
		}

		handler, err := a.NewServer()
		if err != nil {
			return err
		}
		server := &http.Server{Addr: cfg.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		go a.WatchExpiry(ctx)

		serveErr := make(chan error, 1)
		go func() { serveErr <- listenAndServe(server) }()

		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}
		return shutdown(server)
	},
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
