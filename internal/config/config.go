package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Sync    SyncConfig
	Roadmap RoadmapConfig

	// APIToken guards every HTTP route except /health. It is never stored in
	// the config file.
	APIToken string `validate:"required"`
}

type ServerConfig struct {
	Port int `validate:"min=1,max=65535"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=console json"`
}

type SyncConfig struct {
	PollInterval time.Duration `validate:"min=0"`
}

type RoadmapConfig struct {
	SkillXP     int `validate:"min=0"`
	CatalogPath string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Sync: SyncConfig{
			PollInterval: time.Second,
		},
		Roadmap: RoadmapConfig{
			SkillXP: 100,
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/nextstep/config.json, then environment variables
// (NEXTSTEP_*), then the secrets file for the API token.
//
// Environment variables override file values. A missing API token is
// generated and saved to the secrets file on first use.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), fileSecrets{path: secretsFilePath()})
}

// LoadDotEnv loads NEXTSTEP_* variables from .env files into the process
// environment. Variables that are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// secretStore abstracts the secrets file for testing.
type secretStore interface {
	Get(account string) (string, error)
	Set(account, value string) error
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.APIToken == "" {
		token, err := ensureToken(secrets)
		if err != nil {
			return Config{}, err
		}
		cfg.APIToken = token
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "nextstep-data"
		}
	}
	return filepath.Join(dir, "nextstep")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "nextstep", "config.json")
}
