package api

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"tourplan/internal/config"
	"tourplan/internal/plan"
	"tourplan/internal/store"
	"tourplan/internal/webhooks"
)

type Server struct {
	Store      store.Store
	Pub        *webhooks.Publisher
	Broker     EventBroker
	Thresholds plan.Thresholds
	Scoring    plan.ScoringWeights
	Webhooks   config.WebhookConfig
}

// NewServer wires the store, broker and publisher from cfg. An empty
// DatabaseURL selects the in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				log.Printf("migrate: %v", err)
			}
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, falling back to in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	srv := &Server{
		Store:      s,
		Pub:        webhooks.NewPublisher(s),
		Broker:     broker,
		Thresholds: cfg.Thresholds.Plan(),
		Scoring:    cfg.Scoring,
		Webhooks:   cfg.Webhooks,
	}
	if cfg.CapacityFile != "" {
		if err := srv.seedCapacity(cfg.CapacityFile); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func (s *Server) seedCapacity(path string) error {
	needs, err := config.LoadCapacityCSV(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Store.ReplaceCapacityNeeds(ctx, needs)
}

// NewWebhookWorker creates the background delivery worker.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Webhooks.MaxAttempts, s.Webhooks.BatchSize, time.Duration(s.Webhooks.IntervalSec)*time.Second)
}
