package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/octobees/localpros/api/internal/config"
	"github.com/octobees/localpros/api/internal/database"
	"github.com/octobees/localpros/api/internal/geocode"
	"github.com/octobees/localpros/api/internal/metrics"
	"github.com/octobees/localpros/api/internal/repository"
	"github.com/octobees/localpros/api/internal/service"
)

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return database.Connect(ctx, cfg.DatabaseURL)
}

// newGeocoder returns nil when no geocoder is configured; address lookups then fail
// and imported companies keep blank coordinates.
func newGeocoder(cfg *config.Config) geocode.Client {
	if cfg.Geocoder.BaseURL == "" {
		zap.L().Warn("geocoder disabled: GEOCODER_BASE_URL is not set")
		return nil
	}

	var limiter *rate.Limiter
	if l := cfg.GeocoderLimit; l.Requests > 0 && l.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(l.Interval/time.Duration(l.Requests)), 1)
	}
	client, err := geocode.NewNominatimClient(nil, cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, limiter)
	if err != nil {
		zap.L().Warn("geocoder disabled", zap.Error(err))
		return nil
	}
	return client
}

func newImporter(cfg *config.Config, pool *pgxpool.Pool, geocoder geocode.Client, m *metrics.AppMetrics) *service.Importer {
	rows := service.NewTxRowRunner(repository.NewTxRunner(pool))
	return service.NewImporter(rows, geocoder, service.NewContactNormalizer(cfg.DefaultPhoneRegion), m)
}
