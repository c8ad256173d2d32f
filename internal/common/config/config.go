package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// AdminAPIConfig configures the operator HTTP surface.
type AdminAPIConfig struct {
	Port  int    `env:"ADMIN_API_PORT" envDefault:"8080"`
	Token string `env:"ADMIN_API_TOKEN" envDefault:""`
	// CORS origin for the ops dashboard.
	Origin string `env:"ADMIN_API_ORIGIN" envDefault:"*"`
}

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		// OwnerID is the fixed admin identity; it is implicitly
		// authorized and the only caller allowed to run admin commands.
		OwnerID string `env:"OWNER_ID,required"`
		// OpsChatID is the operations broadcast channel for order and
		// top-up notifications, distinct from the owner's direct chat.
		OpsChatID string `env:"OPS_CHAT_ID,required"`
	}

	AdminAPI AdminAPIConfig

	Topup struct {
		// Minimum stageable amount in minor currency units.
		MinAmount int64 `env:"TOPUP_MIN_AMOUNT" envDefault:"1000"`
	}

	Catalog struct {
		// Unit price of one weekly-pass tier in minor currency units.
		WeeklyPassUnitPrice int64 `env:"WEEKLY_PASS_UNIT_PRICE" envDefault:"6500"`
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env is optional; production sets variables directly.
		_ = err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
