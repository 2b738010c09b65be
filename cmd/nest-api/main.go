// README: Entry point; loads config, wires storage, AI services and the HTTP API, then serves until signalled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"nest/internal/ai"
	"nest/internal/config"
	nesthttp "nest/internal/http"
	"nest/internal/http/handlers"
	"nest/internal/http/middleware"
	"nest/internal/infra"
	"nest/internal/logger"
	"nest/internal/maps"
	"nest/internal/modules/aiusage"
	"nest/internal/modules/assistant"
	"nest/internal/modules/details"
	"nest/internal/modules/grounding"
	"nest/internal/modules/itinerary"
	"nest/internal/modules/media"
	"nest/internal/modules/suggestion"
	"nest/internal/modules/trip"
	"nest/internal/service"
	"nest/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("nest-api exited", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	verifier, err := newVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	pool, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		// the details cache is optional
		log.Warn("redis unavailable, details are not cached", map[string]interface{}{"error": err.Error()})
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		routes trip.RoutePlanner
		places details.PlaceLookup
	)
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return fmt.Errorf("maps routes: %w", err)
		}
		ps, err := maps.NewPlacesService(cfg.Maps.APIKey)
		if err != nil {
			return fmt.Errorf("maps places: %w", err)
		}
		routes, places = rs, ps
	}

	creds := config.DefaultCredentials(cfg.AI.EnvFile)
	factory := ai.GeminiFactory{}
	if creds.Resolve() == "" {
		log.Warn("no AI credential configured, generative features will degrade", nil)
	}

	mediaOpts := media.Options{
		PollInterval: cfg.AI.VideoPollInterval,
		MaxPolls:     cfg.AI.VideoMaxPolls,
	}
	if cfg.AI.KeyFile != "" {
		mediaOpts.Selector = &config.KeyFileSelector{Path: cfg.AI.KeyFile, Creds: creds}
	}

	trips := trip.NewService(tripRepo(pool), routes, log)
	itineraries := itinerary.NewService(creds, factory, log, cfg.AI.ItineraryTimeout)
	mediaSvc := media.NewService(creds, factory, log, mediaOpts)
	planner := service.NewTripPlanner(itineraries, mediaSvc, trips, log, service.PlannerOptions{
		DemoUID:        cfg.Demo.UID,
		TeaserDeadline: cfg.AI.TeaserDeadline,
	})

	var quota middleware.TokenSpender
	if cfg.Quota.Enabled {
		quota = aiusage.NewService(quotaStore(pool))
	}

	server := nesthttp.NewServer(cfg.HTTP.Addr, nesthttp.Deps{
		Verifier: verifier,
		Quota:    quota,
		Planner:  planner,
		Trips:    trips,
		AI: handlers.AIDeps{
			Suggestions:    suggestion.NewService(creds, factory, log),
			Itineraries:    itineraries,
			Media:          mediaSvc,
			Grounding:      grounding.NewService(creds, factory, log),
			Details:        details.NewService(creds, factory, details.NewCache(rdb, cfg.Details.CacheTTL), places, log),
			Destinations:   trips,
			DemoUID:        cfg.Demo.UID,
			TeaserDeadline: cfg.AI.TeaserDeadline,
		},
		Chats:          assistant.NewChats(creds, factory, log),
		Creds:          creds,
		Factory:        factory,
		VoiceQueueSize: cfg.Voice.OutboundQueue,
		Log:            log,
	})

	return server.Run(ctx)
}

func newVerifier(ctx context.Context, cfg config.Config, log logger.Logger) (infra.TokenVerifier, error) {
	if cfg.Firebase.ProjectID == "" {
		log.Warn("firebase.project_id is empty, accepting unsigned dev tokens", nil)
		return infra.DevVerifier{}, nil
	}
	v, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return v, nil
}

// openDB returns nil when no DSN is configured; stores then live in memory.
func openDB(ctx context.Context, cfg config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg.DB.DSN == "" {
		log.Warn("db.dsn is empty, trips and quotas are kept in memory", nil)
		return nil, nil
	}
	if cfg.DB.Migrate {
		if err := infra.Migrate(cfg.DB.DSN, migrations.FS, log); err != nil {
			return nil, err
		}
	}
	return infra.NewDB(ctx, cfg.DB.DSN)
}

func tripRepo(pool *pgxpool.Pool) trip.Repository {
	if pool == nil {
		return trip.NewMemoryStore()
	}
	return trip.NewStore(pool)
}

func quotaStore(pool *pgxpool.Pool) aiusage.Quota {
	if pool == nil {
		return aiusage.NewMemoryStore()
	}
	return aiusage.NewStore(pool)
}
