package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	APIKey   string `env:"API_KEY,required,notEmpty"`
	GameType string `env:"GAME_TYPE" envDefault:"tictactoe"`
	Bet      int64  `env:"BET" envDefault:"0"`
	// TournamentID registers for a tournament instead of quick-joining rooms.
	TournamentID string `env:"TOURNAMENT_ID"`
	MaxGames     int    `env:"MAX_GAMES" envDefault:"1"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
