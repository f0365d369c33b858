package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment.
type Config struct {
	Addr          string        `env:"PASS_ADDR" envDefault:":8080"`
	DataDir       string        `env:"PASS_DATA_DIR" envDefault:"./data"`
	PgDSN         string        `env:"PASS_PG_DSN"`
	PollEvery     time.Duration `env:"PASS_POLL_INTERVAL" envDefault:"2s"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	EnrichTimeout time.Duration `env:"PASS_ENRICH_TIMEOUT" envDefault:"10s"`
}

// Load reads optional .env files and then the process environment.
// Missing .env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
