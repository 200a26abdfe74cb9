package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cloudnav/internal/auth"
	"cloudnav/internal/bot"
	"cloudnav/internal/extension"
	"cloudnav/internal/links"
	"cloudnav/internal/logging"
	"cloudnav/internal/scraper"
	"cloudnav/internal/server"
	"cloudnav/internal/storage"
)

const (
	gcInterval      = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the Telegram bot when configured)",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// the server logs to stdout like any daemon
			return a.load(cmd.OutOrStdout())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&a.addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(parent context.Context, a *app) error {
	cfg := a.cfg
	log := a.log
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	log.AddHook(logging.NewPrometheusHook(reg, "cloudnav"))

	log.WithFields(logrus.Fields{
		"addr":            cfg.Server.Addr,
		"storage_path":    cfg.Storage.Path,
		"scraper_enabled": cfg.Scraper.Enabled,
		"telegram":        cfg.Telegram.Token != "",
	}).Info("Configuration loaded successfully")

	repo, err := storage.NewBadgerRepository(cfg.Storage.Path, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	rasterizers := extension.ChainRasterizer{extension.NewImageRasterizer(nil)}
	var linkService *links.Service
	if cfg.Scraper.Enabled {
		rod := scraper.NewRodScraper(log)
		rasterizers = append(rasterizers, rod)
		linkService = links.NewService(repo, rod, log)
	} else {
		linkService = links.NewService(repo, nil, log)
	}

	srv := server.New(server.Options{
		Repo:      repo,
		Verifier:  auth.NewVerifier(cfg.Auth.Password, cfg.Auth.PasswordHash),
		Links:     linkService,
		Packager:  extension.NewPackager(rasterizers, log),
		Registry:  reg,
		StaticDir: cfg.Server.StaticDir,
		Logger:    log,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		repo.RunGC(ctx, gcInterval)
		return nil
	})

	if cfg.Telegram.Token != "" {
		botHandler, err := bot.NewHandler(cfg.Telegram, repo, linkService, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to initialize Telegram bot handler: %w", err)
		}
		g.Go(func() error {
			botHandler.Start(ctx)
			return nil
		})
	}

	log.Info("CloudNav is running. Press Ctrl+C to exit.")
	err = g.Wait()
	log.Info("CloudNav shut down.")
	return err
}
