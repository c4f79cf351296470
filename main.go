package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"graph-rag/internal/config"
	"graph-rag/internal/router"
)

var rootCmd = &cobra.Command{
	Use:          "graph-rag",
	Short:        "GraphRAG research assistant",
	Long:         `Ingest research papers into a vector index and a knowledge graph, then answer questions over both.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router.New(a.routes(), cfg.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logrus.WithField("address", cfg.HTTPAddr).Info("server starting")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("server failed to start")
				return err
			}
		case <-ctx.Done():
			logrus.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.WithError(err).Error("server shutdown failed")
				return err
			}
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.SetupLogging()
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
