package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "clutch.toml"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Token  string `toml:"token"`
	Origin string `toml:"origin"`
	Room   string `toml:"room"`
	User   uint64 `toml:"user"`

	Source string `toml:"-"`
}

// ResolvePath returns the canonical absolute path of the config file,
// defaulting to clutch.toml in the working directory.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	return canonical, nil
}

func Load(path string) (Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return Config{}, err
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", resolved, err)
	}
	cfg.Source = resolved

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(c.Origin) == "" {
		missing = append(missing, "origin")
	}
	if strings.TrimSpace(c.Room) == "" {
		missing = append(missing, "room")
	}
	if c.User == 0 {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}
