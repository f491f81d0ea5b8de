package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is sourced from QUIZ_-prefixed environment variables, with an
// optional .env file for development.
type Config struct {
	Addr            string   `envconfig:"ADDR" default:":8080"`
	QuestionSeconds int      `envconfig:"QUESTION_SECONDS" default:"15"`
	GraceSeconds    int      `envconfig:"GRACE_SECONDS" default:"10"`
	DefaultCapacity int      `envconfig:"DEFAULT_CAPACITY" default:"2"`
	OpenTDBURL      string   `envconfig:"OPENTDB_URL" default:"https://opentdb.com"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS"`
	Dev             bool     `envconfig:"DEV" default:"false"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var c Config
	if err := envconfig.Process("quiz", &c); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.QuestionSeconds < 1 {
		return fmt.Errorf("question timer must be at least 1 second, got %d", c.QuestionSeconds)
	}
	if c.GraceSeconds < 0 {
		return fmt.Errorf("grace period must not be negative, got %d", c.GraceSeconds)
	}
	if c.DefaultCapacity < 1 {
		return fmt.Errorf("default capacity must be at least 1, got %d", c.DefaultCapacity)
	}
	return nil
}

func (c Config) QuestionTime() time.Duration {
	return time.Duration(c.QuestionSeconds) * time.Second
}

func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}
