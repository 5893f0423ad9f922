package config

import (
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName    = "clash-cfg-edit"
	AppVersion = "v1.2.0"
)

type Config struct {
	HttpServer HttpServer
	Auth       Auth
	Log        Log

	// ConfigDir is the root directory for locally stored configuration
	// documents. Filenames are sandboxed to it.
	ConfigDir string `envconfig:"CONFIG_DIR" default:"configs"`

	// WebDir holds the built single-page frontend.
	WebDir string `envconfig:"WEB_DIR" default:"web"`
}

type HttpServer struct {
	Host           string   `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int      `envconfig:"SERVER_PORT" default:"3000"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// Auth is the deployment-time switch for the whole authentication feature.
// With Enabled false every gated route passes through unconditionally.
type Auth struct {
	Enabled  bool   `envconfig:"AUTH_ENABLED" default:"false"`
	Username string `envconfig:"AUTH_USERNAME" default:"admin"`
	Password string `envconfig:"AUTH_PASSWORD" default:"admin"`
}

type Log struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	Path  string `envconfig:"LOG_PATH"`
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, errors.WithStack(err)
	}

	return &c, nil
}
