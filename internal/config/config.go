package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ANKIMD_*). A double underscore separates
// nested keys: ANKIMD_THEMES__DARK -> themes.dark.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.ProviderWithValue("ANKIMD_", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envValue maps ANKIMD_LANGUAGES=go,rust to languages=[go rust] and
// ANKIMD_THEMES__LIGHT to themes.light.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, "ANKIMD_"))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "languages" {
		return key, splitAndTrim(value)
	}
	return key, value
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validSources is the set of recognized grammar_source values.
var validSources = map[GrammarSource]bool{
	SourceAssets:  true,
	SourceHTTP:    true,
	SourceBundled: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validSources[c.GrammarSource] {
		return fmt.Errorf("invalid grammar_source %q: must be one of assets, http, bundled", c.GrammarSource)
	}

	if c.GrammarSource == SourceAssets && c.AssetDir == "" {
		return fmt.Errorf("asset_dir is required when grammar_source is assets")
	}

	if c.GrammarSource == SourceHTTP && c.AssetURL == "" {
		return fmt.Errorf("asset_url is required when grammar_source is http")
	}

	if c.Themes.Light == "" || c.Themes.Dark == "" {
		return fmt.Errorf("themes.light and themes.dark are required")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}

	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must be non-negative")
	}

	return nil
}

// RenderConfig returns the normalized rendering view of c.
func (c *Config) RenderConfig() RenderConfig {
	return Normalize(RenderConfig{
		Languages: append([]string(nil), c.Languages...),
		Themes:    c.Themes,
		Cardless:  c.Cardless,
	})
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
