package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Database struct {
	Driver      string        `env:"DATABASE_DRIVER" env-default:"sqlite" env-description:"sqlite or postgres"`
	Path        string        `env:"DATABASE_PATH" env-default:"kioskvote.db"`
	URL         string        `env:"DATABASE_URL"`
	TxTimeout   time.Duration `env:"TX_TIMEOUT" env-default:"5s"`
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" env-default:"5s"`
	AutoMigrate bool          `env:"AUTO_MIGRATE" env-default:"true"`
}

type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"OPERATOR_TOKEN_TTL" env-default:"15m"`
	BcryptCost int           `env:"BCRYPT_COST" env-default:"12"`
}

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:"127.0.0.1:8080"`
	Lockdown string `env:"LOCKDOWN" env-default:"xmodmap" env-description:"xmodmap or none"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	LogFile  string `env:"LOG_FILE"`
	Database Database
	Auth     Auth
}

// New loads an optional .env file and then the environment. A missing .env
// is not an error.
func New(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
