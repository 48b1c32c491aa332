package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/ledger"
	"board-arena/internal/logging"
	"board-arena/internal/mcpserver"
	"board-arena/internal/notify"
	"board-arena/internal/registry"
	"board-arena/internal/scheduler"
	"board-arena/internal/session"
	"board-arena/internal/spectatorgateway"
	"board-arena/internal/store"
	"board-arena/internal/tournament"
	httptransport "board-arena/internal/transport/http"
	"board-arena/internal/ws"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return err
	}

	notifier, closeNotifier := newNotifier(ctx, cfg.Server)
	defer closeNotifier()
	led := ledger.New(st)
	games := game.NewRegistry(game.Options{CheckersMandatoryCapture: cfg.Gameplay.CheckersMandatoryCapture})
	conns := registry.New()
	spectators := spectatorgateway.NewHub(200)

	sessions := session.NewManager(cfg.Gameplay, session.Deps{
		Games:      games,
		Wallet:     led,
		Out:        conns,
		Notifier:   notifier,
		Spectators: spectators,
	})
	defer sessions.Shutdown()

	tours := tournament.New(cfg.Gameplay, tournament.Deps{
		Store:    st,
		Wallet:   led,
		Sessions: sessions,
		Out:      conns,
	})
	defer tours.Close()
	sessions.SetObserver(tours)
	if err := tours.Recover(ctx); err != nil {
		return err
	}

	sched, err := scheduler.New(tours, cfg.Server.SchedulerInterval)
	if err != nil {
		return err
	}

	wsSrv := ws.NewServer(st, sessions, tours, conns, ws.Options{
		AllowAnyOrigin: cfg.Server.WSAllowAnyOrigin,
		SendBuffer:     cfg.Server.WSSendBuffer,
	})
	mcpSrv := mcpserver.New(st, sessions, tours)

	r := httptransport.NewRouter(httptransport.Deps{
		DB:             st,
		Users:          st,
		Wallet:         led,
		Rooms:          sessions,
		Tournaments:    tours,
		Spectators:     spectators,
		WS:             http.HandlerFunc(wsSrv.HandleWS),
		MCP:            mcpSrv.Handler(),
		AdminAPIKey:    cfg.Server.AdminAPIKey,
		InitialBalance: cfg.Server.InitialBalance,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler stop failed")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("http shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newNotifier publishes to Redis when configured and falls back to log-only
// delivery when Redis is absent or unreachable.
func newNotifier(ctx context.Context, cfg config.ServerConfig) (notify.Notifier, func()) {
	if cfg.RedisURL == "" {
		return notify.Nop{}, func() {}
	}
	pub, err := notify.NewRedisPublisher(ctx, cfg.RedisURL, cfg.NotifyChannel)
	if err != nil {
		log.Warn().Err(err).Msg("redis notifier disabled")
		return notify.Nop{}, func() {}
	}
	log.Info().Str("channel", cfg.NotifyChannel).Msg("redis notifier enabled")
	return pub, func() { _ = pub.Close() }
}
