package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"livequiz/config"
	"livequiz/handlers"
	"livequiz/middleware"
	"livequiz/routes"
	"livequiz/services"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func newCatalog(ctx context.Context, cfg *config.Config) (services.QuizCatalog, *services.ResultArchive, error) {
	if !cfg.DatabaseEnabled() {
		catalog := services.NewMemoryCatalog()
		if cfg.QuizDir != "" {
			n, err := catalog.LoadQuizDir(ctx, cfg.QuizDir)
			if err != nil {
				return nil, nil, fmt.Errorf("load quizzes: %w", err)
			}
			log.Info().Str("dir", cfg.QuizDir).Int("quizzes", n).Msg("loaded quiz files")
		}
		log.Warn().Msg("no database configured, quizzes stay in memory and results are not archived")
		return catalog, nil, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return services.NewQuizService(db), services.NewResultArchive(db), nil
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, archive, err := newCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	var snapshots *services.SnapshotStore
	if cfg.RedisEnabled() {
		rdb, err := config.InitRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		snapshots = services.NewSnapshotStore(rdb, cfg.SnapshotTTL)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("no JWT secret configured, host tokens will not survive a restart")
		secret = services.RandomSecret()
	}

	clock := clockwork.NewRealClock()
	games := services.NewGameService(services.GameServiceOptions{
		Catalog:           catalog,
		Tokens:            services.NewHostTokens(secret, cfg.TokenTTL, clock),
		Snapshots:         snapshots,
		Archive:           archive,
		Clock:             clock,
		TickInterval:      cfg.TickInterval,
		RevealDuration:    cfg.RevealDuration,
		PublicURL:         cfg.PublicURL,
		DefaultMaxPlayers: cfg.MaxPlayers,
		IdleTimeout:       cfg.IdleTimeout,
	})

	hub := services.NewHub(games, services.DefaultConnectionConfig())
	broadcasters := services.Broadcasters{hub}
	if cfg.NATSEnabled() {
		nc, err := config.InitNATS(cfg)
		if err != nil {
			return err
		}
		defer nc.Close()
		broadcasters = append(broadcasters, services.NewEventBridge(nc, cfg.NATSSubjectPrefix))
	}
	games.SetBroadcaster(broadcasters)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		games.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		hub.Run(runCtx)
	}()

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	quizHandler := handlers.NewQuizHandler(catalog, archive)
	gameHandler := handlers.NewGameHandler(games, hub)
	routes.SetupRoutes(router, quizHandler, gameHandler, games)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Bool("database", cfg.DatabaseEnabled()).
			Bool("redis", cfg.RedisEnabled()).
			Bool("nats", cfg.NATSEnabled()).
			Msg("livequiz listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	games.Shutdown()
	cancelRun()
	wg.Wait()
	return nil
}
