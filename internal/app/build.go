package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chasehome/internal/broadcast"
	"chasehome/internal/config"
	"chasehome/internal/engine"
	"chasehome/internal/events"
	"chasehome/internal/httpapi"
	"chasehome/internal/observability"
	"chasehome/internal/presence"
	"chasehome/internal/room"
	"chasehome/internal/store"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Engine   *engine.Engine
	Rooms    *room.Manager
	Registry *presence.Registry
	Store    store.Store
	Journal  events.Log
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB connections etc).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	persist, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	journal, err := events.NewLog(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = persist.Close()
		return nil, fmt.Errorf("event log init failed: %w", err)
	}

	registry := presence.NewRegistry(cfg.DisconnectGrace)
	rooms := room.NewManager(persist, cfg.MaxPlayersPerRoom, cfg.RoomIdleTimeout)
	dispatch := broadcast.NewDispatcher(registry, metrics)
	eng := engine.New(rooms, registry, dispatch, persist, journal, metrics)

	rooms.StartJanitor(ctx, time.Minute)

	api := httpapi.New(cfg, eng, rooms, persist, journal, metrics)

	cleanup := func() error {
		var errs []string
		if err := journal.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := persist.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Engine:   eng,
		Rooms:    rooms,
		Registry: registry,
		Store:    persist,
		Journal:  journal,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}
