package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if TIARA_CONFIG is set
//  3. env (prefix TIARA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TIARA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: TIARA_ADDR, TIARA_STORE_DRIVER, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("TIARA_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "tiara_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret must be set", ErrInvalidConfig)
	}
	if c.AdminAccessCode == "" {
		return fmt.Errorf("%w: admin_access_code must be set", ErrInvalidConfig)
	}
	return nil
}

// LoadEvent reads and validates the YAML event definition. Entities that
// omit an id receive a generated one so downstream keys are always stable.
func LoadEvent(_ context.Context, path string) (model.Event, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrLoadEvent, err)
	}

	var event model.Event
	if err := k.UnmarshalWithConf("", &event, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrLoadEvent, err)
	}

	assignIDs(&event)
	if err := event.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return event, nil
}

func assignIDs(event *model.Event) {
	for i := range event.Divisions {
		if event.Divisions[i].ID == "" {
			event.Divisions[i].ID = uuid.NewString()
		}
	}
	for i := range event.Categories {
		if event.Categories[i].ID == "" {
			event.Categories[i].ID = uuid.NewString()
		}
		for j := range event.Categories[i].Criteria {
			if event.Categories[i].Criteria[j].ID == "" {
				event.Categories[i].Criteria[j].ID = uuid.NewString()
			}
			event.Categories[i].Criteria[j].CategoryID = event.Categories[i].ID
		}
	}
	for i := range event.Judges {
		if event.Judges[i].ID == "" {
			event.Judges[i].ID = uuid.NewString()
		}
	}
	for i := range event.Contestants {
		if event.Contestants[i].ID == "" {
			event.Contestants[i].ID = uuid.NewString()
		}
	}
}
