package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	kind, err := game.ParseKind(cfg.GameType)
	if err != nil {
		log.Fatal().Err(err).Msg("bad game type")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &player{
		games:        game.NewRegistry(game.Options{}),
		kind:         kind,
		bet:          cfg.Bet,
		tournamentID: cfg.TournamentID,
		maxGames:     max(cfg.MaxGames, 1),
	}
	if err := run(ctx, cfg.WSURL, cfg.APIKey, p); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Int("games", p.played).Msg("bot finished")
}

func run(ctx context.Context, wsURL, apiKey string, p *player) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(p.opening()); err != nil {
		return err
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("bot dropped malformed message")
			continue
		}
		if env.Type == "error" || env.Type == "tournamentGameError" {
			log.Warn().Str("data", string(env.Data)).Str("type", env.Type).Msg("server rejected request")
			continue
		}
		replies, done, err := p.handle(env)
		if err != nil {
			log.Warn().Err(err).Str("type", env.Type).Msg("bot could not handle message")
			continue
		}
		for _, out := range replies {
			if err := conn.WriteJSON(out); err != nil {
				return err
			}
		}
		if done {
			return nil
		}
	}
}
