// Package config содержит логику чтения конфигурации движка токеномики.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации движка токеномики.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	VerifierAddress   string `env:"VERIFIER_ADDRESS"`
	OwnerAddress      string `env:"OWNER_ADDRESS"`
	EngineAddress     string `env:"ENGINE_ADDRESS"`
	SettingsFile      string `env:"SETTINGS_FILE"`
	SessionSecret     string `env:"SESSION_SECRET"`
	OwnerPasswordHash string `env:"OWNER_PASSWORD_HASH"` // bcrypt; пустой хеш закрывает вход владельца
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.VerifierAddress, "v", "", "identity proof verifier address")
	flag.StringVar(&cfg.OwnerAddress, "o", "owner", "owner address")
	flag.StringVar(&cfg.EngineAddress, "e", "engine", "engine treasury address")
	flag.StringVar(&cfg.SettingsFile, "s", "", "path to JSON settings file")
	flag.StringVar(&cfg.SessionSecret, "k", "yieldmart-secret", "session cookie signing secret")
	flag.StringVar(&cfg.OwnerPasswordHash, "p", "", "bcrypt hash of the owner password")

	flag.Parse()

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.RunAddress, envCfg.RunAddress)
	override(&cfg.DatabaseURI, envCfg.DatabaseURI)
	override(&cfg.VerifierAddress, envCfg.VerifierAddress)
	override(&cfg.OwnerAddress, envCfg.OwnerAddress)
	override(&cfg.EngineAddress, envCfg.EngineAddress)
	override(&cfg.SettingsFile, envCfg.SettingsFile)
	override(&cfg.SessionSecret, envCfg.SessionSecret)
	override(&cfg.OwnerPasswordHash, envCfg.OwnerPasswordHash)

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.OwnerAddress == "" || cfg.EngineAddress == "" {
		return nil, fmt.Errorf("owner and engine addresses must not be empty")
	}
	if cfg.OwnerAddress == cfg.EngineAddress {
		return nil, fmt.Errorf("owner and engine addresses must differ")
	}

	return cfg, nil
}
