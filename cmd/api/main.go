package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	v1 "duochat/cmd/api/router/v1"
	cacheAdapter "duochat/internal/infrastructure/cache/adapter"
	cacheport "duochat/internal/infrastructure/cache/port"
	"duochat/internal/infrastructure/config"
	"duochat/internal/infrastructure/database"
	"duochat/internal/infrastructure/logger"
	"duochat/internal/infrastructure/metrics"
	queueAdapter "duochat/internal/infrastructure/queue/adapter"
	qport "duochat/internal/infrastructure/queue/port"
	"duochat/internal/infrastructure/realtime"
	"duochat/internal/pkg/chat/application/task"
	"duochat/internal/pkg/chat/application/usecase"
	chatAdapter "duochat/internal/pkg/chat/persistence/repository/adapter"
	chatrepo "duochat/internal/pkg/chat/persistence/repository/port"
	"duochat/internal/pkg/chat/presentation/controller"
	userAdapter "duochat/internal/repository/adapter"
	userrepo "duochat/internal/repository/port"
)

func main() {
	cfg, envErr := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file not loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New()

	chats, participants, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	order, err := usecase.ParseChatListOrder(cfg.ChatListOrder)
	if err != nil {
		return err
	}
	self, ok := realtime.ParseSelfDelivery(cfg.HubSelfDelivery)
	if !ok {
		return fmt.Errorf("unknown HUB_SELF_DELIVERY %q", cfg.HubSelfDelivery)
	}
	hub := realtime.NewHub(
		realtime.WithSelfDelivery(self),
		realtime.WithLogger(logger.Component(log, "hub")),
		realtime.WithMetrics(m),
	)
	defer hub.Close()

	var (
		cache cacheport.Cache = cacheAdapter.NewMemoryCache()
		queue qport.Client
	)
	var workers *queueAdapter.AsynqServer
	if cfg.RedisURL != "" {
		rdb, err := cacheAdapter.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		cache = cacheAdapter.NewRedisCache(rdb)
		defer cache.Close()

		relay := realtime.NewRedisRelay(rdb, realtime.DefaultRelayChannel, logger.Component(log, "relay"))
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Error().Err(err).Msg("relay stopped")
			}
		}()

		client, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		queue = client

		workers, err = queueAdapter.NewAsynqServer(queueAdapter.ServerConfig{
			RedisURL:    cfg.RedisURL,
			Concurrency: cfg.AsynqConcurrency,
			Queues:      cfg.AsynqQueues,
			Logger:      log,
		})
		if err != nil {
			return err
		}
	} else {
		log.Warn().Msg("REDIS_URL not set: presence tasks and cross-node relay disabled")
	}

	participants = userAdapter.NewCachedParticipantRepository(participants, cache, userAdapter.DefaultParticipantTTL, logger.Component(log, "cache"))

	if workers != nil {
		task.RegisterTouchPresenceTask(workers, usecase.NewTouchPresenceUseCase(participants))
		go func() {
			if err := workers.Run(ctx); err != nil {
				log.Error().Err(err).Msg("task workers stopped")
			}
		}()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log), m.GinMiddleware())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	v1.RegisterRoutes(r, controller.Deps{
		Chats:        chats,
		Participants: participants,
		Queue:        queue,
		Recorder:     m,
		Hub:          hub,
		HubBuffer:    cfg.HubBuffer,
		Order:        order,
		Location:     cfg.DisplayLocation,
		Log:          log,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db_driver", cfg.DBDriver).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (chatrepo.ChatRepository, userrepo.ParticipantRepository, func(), error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return chatAdapter.NewSqliteChatRepository(db), userAdapter.NewSqliteParticipantRepository(db), func() { db.Close() }, nil
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		pool, err := database.Connect(connectCtx, cfg.DBURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsurePostgresSchema(connectCtx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return chatAdapter.NewPgChatRepository(pool), userAdapter.NewPgParticipantRepository(pool), pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
