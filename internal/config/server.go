package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// RedisURL enables push-notification publishing; empty keeps notifications log-only.
	RedisURL      string `env:"REDIS_URL"`
	NotifyChannel string `env:"NOTIFY_CHANNEL" envDefault:"arena:notifications"`

	InitialBalance   int64 `env:"INITIAL_BALANCE" envDefault:"1000"`
	WSAllowAnyOrigin bool  `env:"WS_ALLOW_ANY_ORIGIN" envDefault:"true"`
	WSSendBuffer     int   `env:"WS_SEND_BUFFER" envDefault:"32"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1m"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
