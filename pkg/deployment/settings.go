package deployment

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds environment-derived runtime configuration, everything
// that is host-specific rather than part of the persisted document.
type Settings struct {
	Environment   string        `env:"RELEASEKIT_ENVIRONMENT" envDefault:"development"`
	ConfigPath    string        `env:"RELEASEKIT_CONFIG_PATH" envDefault:"config.yaml"`
	StorageDir    string        `env:"RELEASEKIT_STORAGE_DIR" envDefault:"artifacts"`
	CheckInterval time.Duration `env:"RELEASEKIT_CHECK_INTERVAL" envDefault:"1m"`

	// RedisURL switches the flag store from memory to Redis when set.
	RedisURL string `env:"RELEASEKIT_REDIS_URL"`

	// S3Bucket switches artifact storage from the local directory to S3
	// when set.
	S3Bucket   string `env:"RELEASEKIT_S3_BUCKET"`
	S3Region   string `env:"RELEASEKIT_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint string `env:"RELEASEKIT_S3_ENDPOINT"`
}

// LoadSettings parses Settings from the environment, first loading a
// .env file if one exists.
func LoadSettings() (Settings, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, errors.Join(ErrInvalidConfig, err)
	}
	return s, nil
}
