package api

import (
	"context"
	"os"
	"strings"
	"time"

	"tripnav/internal/config"
	"tripnav/internal/ingest"
	"tripnav/internal/store"
	"tripnav/internal/webhooks"
)

type Server struct {
	Cfg    config.Config
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
	Ingest *ingest.Runner
}

// NewServer wires the service from config and environment. With no
// DATABASE_URL it runs on the in-memory store; with no REDIS_URL the
// progress broker and estimate cache are process-local.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := sp.Migrate(ctx)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker
	var cache ingest.Cache
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
			cache = ingest.NewRedisCache(rb.Client(), time.Duration(cfg.Ingest.CacheTTLHours)*time.Hour)
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	est := ingest.NewChatEstimator(cfg.Ingest.EstimatorURL, os.Getenv("OPENAI_API_KEY"), cfg.Ingest.Model)
	runner := ingest.NewRunner(s, est, cache, cfg.Ingest.Concurrency, cfg.Ingest.RatePerSecond)
	runner.Depot = cfg.DepotDestination()
	if key := os.Getenv("GOOGLE_PLACES_API_KEY"); key != "" {
		runner.Places = ingest.NewPlacesClient(key)
	}

	return &Server{
		Cfg:    cfg,
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Broker: broker,
		Ingest: runner,
	}, nil
}

// NewWebhookWorker creates the background delivery worker for this server's
// store.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
