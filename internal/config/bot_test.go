package config

import "testing"

func TestLoadBotDefaults(t *testing.T) {
	t.Setenv("API_KEY", "key-a")
	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.WSURL != "ws://localhost:8080/ws" {
		t.Fatalf("WSURL = %q, want ws://localhost:8080/ws", cfg.WSURL)
	}
	if cfg.GameType != "tictactoe" {
		t.Fatalf("GameType = %q, want tictactoe", cfg.GameType)
	}
	if cfg.MaxGames != 1 || cfg.TournamentID != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadBotRequiresAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	if _, err := LoadBot(); err == nil {
		t.Fatal("expected error without API_KEY")
	}
}

func TestLoadBotOverrides(t *testing.T) {
	t.Setenv("WS_URL", "ws://127.0.0.1:9000/ws")
	t.Setenv("GAME_TYPE", "backgammon")
	t.Setenv("API_KEY", "key-a")
	t.Setenv("BET", "25")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.WSURL != "ws://127.0.0.1:9000/ws" {
		t.Fatalf("WSURL = %q", cfg.WSURL)
	}
	if cfg.GameType != "backgammon" || cfg.APIKey != "key-a" || cfg.Bet != 25 {
		t.Fatalf("unexpected bot config: %+v", cfg)
	}
}
