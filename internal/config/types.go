package config

// GrammarSource selects where the highlighter fetches grammar and theme
// definitions from.
type GrammarSource string

const (
	// SourceAssets reads _lang-<name>.xml / _theme-<name>.xml from AssetDir.
	SourceAssets GrammarSource = "assets"
	// SourceHTTP fetches the same file names relative to AssetURL.
	SourceHTTP GrammarSource = "http"
	// SourceBundled uses the definitions compiled into chroma.
	SourceBundled GrammarSource = "bundled"
)

// Themes is the light/dark highlighting theme pair.
type Themes struct {
	Light string `json:"light" yaml:"light" koanf:"light"`
	Dark  string `json:"dark" yaml:"dark" koanf:"dark"`
}

// Config is the top-level anki-md configuration, corresponding to .ankimd.yml.
type Config struct {
	Languages     []string      `yaml:"languages" koanf:"languages"`
	Themes        Themes        `yaml:"themes" koanf:"themes"`
	Cardless      bool          `yaml:"cardless" koanf:"cardless"`
	AssetDir      string        `yaml:"asset_dir" koanf:"asset_dir"`
	AssetURL      string        `yaml:"asset_url" koanf:"asset_url"`
	GrammarSource GrammarSource `yaml:"grammar_source" koanf:"grammar_source"`
	UpstreamURL   string        `yaml:"upstream_url" koanf:"upstream_url"`
	OnDemand      bool          `yaml:"on_demand" koanf:"on_demand"`
	DataDir       string        `yaml:"data_dir" koanf:"data_dir"`
	Port          int           `yaml:"port" koanf:"port"`
	DebounceMS    int           `yaml:"debounce_ms" koanf:"debounce_ms"`
	LogLevel      string        `yaml:"log_level" koanf:"log_level"`
}

// RenderConfig is what the rendering pipeline sees: the JSON object that is
// embedded in the display document. AvailableLanguages is nil when the
// source did not mention it.
type RenderConfig struct {
	Languages          []string `json:"languages"`
	AvailableLanguages []string `json:"availableLanguages,omitempty"`
	Themes             Themes   `json:"themes"`
	Cardless           bool     `json:"cardless"`
}
