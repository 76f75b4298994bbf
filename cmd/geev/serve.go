package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/geev/internal/database"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository"
	"github.com/vedran77/geev/internal/repository/memory"
	postgresrepo "github.com/vedran77/geev/internal/repository/postgres"
	"github.com/vedran77/geev/internal/transport/http/handlers"
	"github.com/vedran77/geev/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

var latencyScale float64

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Long: `Serves the Geev API on SERVER_PORT.

With DATABASE_URL set the data lives in postgres, seeded with the demo
dataset on first start. Otherwise an in-memory store is used and every
call waits a simulated network delay (scaled by LATENCY_SCALE).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Float64Var(&latencyScale, "latency-scale", -1, "Override LATENCY_SCALE (0 disables simulated delays)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.CheckSecrets(); err != nil {
		return err
	}
	if cfg.UsesDefaultJWTSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the public development secret")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, delay, cleanup, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	authAPI := mockapi.NewAuthAPI(store.Users, delay, cfg.JWTSecret)
	itemsAPI := mockapi.NewItemsAPI(store.Items, delay)
	messagesAPI := mockapi.NewMessagesAPI(store, delay)

	hub := ws.NewHub(messagesAPI, logger)
	messagesAPI.SetNotifier(ws.NewHubNotifier(hub))

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:     authAPI,
		Items:    itemsAPI,
		Messages: messagesAPI,
		WS:       ws.ServeWS(hub, authAPI),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks postgres when DATABASE_URL is set, the seeded memory
// store otherwise.
func openStore(ctx context.Context) (*repository.Store, mockapi.Delayer, func(), error) {
	scale := cfg.LatencyScale
	if latencyScale >= 0 {
		scale = latencyScale
	}

	if cfg.DatabaseURL == "" {
		store, err := memory.NewDefault()
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using in-memory store", zap.Float64("latency_scale", scale))
		return store, mockapi.Latency{Scale: scale}, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	store := postgresrepo.New(pool)
	if err := seedIfEmpty(ctx, store); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	// A real database needs no simulated latency unless asked for.
	if latencyScale < 0 {
		scale = 0
	}
	logger.Info("connected to database", zap.Float64("latency_scale", scale))
	return store, mockapi.Latency{Scale: scale}, pool.Close, nil
}

func seedIfEmpty(ctx context.Context, store *repository.Store) error {
	demo, err := store.Users.GetByEmail(ctx, mockapi.DemoEmail)
	if err != nil {
		return fmt.Errorf("checking seed: %w", err)
	}
	if demo != nil {
		return nil
	}

	seed, err := memory.DefaultSeed()
	if err != nil {
		return err
	}
	if err := memory.Load(ctx, store, seed); err != nil {
		return err
	}
	logger.Info("seeded demo dataset",
		zap.Int("users", len(seed.Users)),
		zap.Int("items", len(seed.Items)),
	)
	return nil
}
