package config

import (
	"fmt"
	"strings"
)

// Parse reads JSONC configuration content over base and validates the result.
// Empty content yields base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func decode(content string, base Config) (Config, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return base, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, fmt.Errorf("config must be a JSONC object")
	}
	return decodeJSONC(content, base)
}
