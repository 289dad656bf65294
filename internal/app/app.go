package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/controller"
	connInmemory "github.com/syncroom/server/internal/repository/connection/inmemory"
	roomRedis "github.com/syncroom/server/internal/repository/room/redis"
	sessionInmemory "github.com/syncroom/server/internal/repository/session/inmemory"
	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/ctxlogger"
	"github.com/syncroom/server/pkg/redisclient"
)

type AppConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	LogLevel        string        `json:"log_level"`
	MembersLimit    int           `json:"members_limit"`
	HistoryLimit    int           `json:"history_limit"`
	RoomIdleTimeout time.Duration `json:"room_idle_timeout"`
	SweepInterval   time.Duration `json:"sweep_interval"`
	SyncTolerance   float64       `json:"sync_tolerance"`
	RedisHost       string        `json:"redis_host"`
	RedisPort       int           `json:"redis_port"`
	RedisPassword   string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be greater than 0")
	}
	if cfg.RoomIdleTimeout <= 0 {
		return fmt.Errorf("room idle timeout must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := roomRedis.NewRepo(rc, cfg.HistoryLimit)
	sessionRepo := sessionInmemory.NewRepo()
	connectionRepo := connInmemory.NewRepo()
	router := broadcast.NewRouter(logger)

	roomService := room.NewService(sessionRepo, roomRepo, connectionRepo, router, room.Config{
		MembersLimit:    cfg.MembersLimit,
		RoomIdleTimeout: cfg.RoomIdleTimeout,
		SyncTolerance:   cfg.SyncTolerance,
	}, logger)
	defer roomService.Close()

	ctrl := controller.NewController(roomService, connectionRepo, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.Mux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	// idle room sweeper
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-serverCtx.Done():
				return
			case <-ticker.C:
				roomService.CleanupIdleRooms(serverCtx)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
