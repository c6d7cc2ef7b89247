package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/localpros/api/internal/auth"
	"github.com/octobees/localpros/api/internal/handler"
	"github.com/octobees/localpros/api/internal/metrics"
	"github.com/octobees/localpros/api/internal/repository"
	"github.com/octobees/localpros/api/internal/router"
	"github.com/octobees/localpros/api/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := connect(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "serve: connect database")
		}
		defer pool.Close()

		m := metrics.Default()
		geocoder := newGeocoder(cfg)
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

		companiesRepo := repository.NewCompaniesRepository(pool)
		locationsRepo := repository.NewLocationsRepository(pool)

		searchService := service.NewSearchService(companiesRepo, locationsRepo, geocoder, m)
		locationService := service.NewLocationService(locationsRepo, companiesRepo, geocoder)
		companyService := service.NewCompanyService(
			companiesRepo,
			repository.NewReviewsRepository(pool),
			repository.NewGalleriesRepository(pool),
			repository.NewTxRunner(pool),
		)
		authService := service.NewAuthService(cfg.Backoffice.AdminEmail, cfg.Backoffice.AdminPasswordHash, jwtManager)

		e := router.New(cfg, jwtManager, router.Handlers{
			Auth:      handler.NewAuthHandler(authService),
			Search:    handler.NewSearchHandler(searchService),
			Companies: handler.NewCompaniesHandler(companyService),
			Locations: handler.NewLocationsHandler(locationService),
			Import:    handler.NewImportHandler(newImporter(cfg, pool, geocoder, m), cfg.ImportMaxBytes),
		}, m, prometheus.DefaultGatherer)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("http server listening", zap.String("port", cfg.Port))
			if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "serve: http server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: graceful shutdown")
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
