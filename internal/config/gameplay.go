package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// GameplayConfig holds the timings and money rules shared by rooms and tournaments.
type GameplayConfig struct {
	BotJoinDelay    time.Duration `env:"BOT_JOIN_DELAY" envDefault:"15s"`
	BotMoveDelay    time.Duration `env:"BOT_MOVE_DELAY" envDefault:"1500ms"`
	BotMoveCap      int           `env:"BOT_MOVE_CAP" envDefault:"64"`
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE" envDefault:"60s"`

	CheckersMandatoryCapture bool `env:"CHECKERS_MANDATORY_CAPTURE" envDefault:"false"`

	TournamentCountdown      time.Duration `env:"TOURNAMENT_COUNTDOWN" envDefault:"15s"`
	TournamentFullStartDelay time.Duration `env:"TOURNAMENT_FULL_START_DELAY" envDefault:"3s"`
	TournamentWarningLead    time.Duration `env:"TOURNAMENT_WARNING_LEAD" envDefault:"5m"`
	TournamentDrawReplays    int           `env:"TOURNAMENT_DRAW_REPLAYS" envDefault:"2"`
	TournamentCommissionPct  int           `env:"TOURNAMENT_COMMISSION_PCT" envDefault:"10"`
	PayoutTiers              []int         `env:"PAYOUT_TIERS" envSeparator:"," envDefault:"60,30,10"`
	MatchReadyRetries        int           `env:"MATCH_READY_RETRIES" envDefault:"5"`
	MatchReadyRetryInterval  time.Duration `env:"MATCH_READY_RETRY_INTERVAL" envDefault:"1s"`
}

func LoadGameplay() (GameplayConfig, error) {
	var cfg GameplayConfig
	err := env.Parse(&cfg)
	return cfg, err
}
