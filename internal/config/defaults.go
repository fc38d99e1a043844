package config

// Built-in theme pair used whenever a theme is not configured.
const (
	DefaultLightTheme = "github"
	DefaultDarkTheme  = "github-dark"
)

// DefaultUpstreamURL is where `ankimd grammars sync` downloads chroma's
// XML definitions from. %s is "lexers/embedded" or "styles", %s the file.
const DefaultUpstreamURL = "https://raw.githubusercontent.com/alecthomas/chroma/v2.14.0/%s/%s.xml"

// builtinTextLanguages name the plain-text pseudo-language. They are always
// available and never fetched.
var builtinTextLanguages = map[string]bool{
	"text":      true,
	"txt":       true,
	"plain":     true,
	"plaintext": true,
}

// IsBuiltinTextLanguage reports whether name is one of the plain-text aliases.
func IsBuiltinTextLanguage(name string) bool {
	return builtinTextLanguages[lower(name)]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Languages:     []string{},
		Themes:        Themes{Light: DefaultLightTheme, Dark: DefaultDarkTheme},
		AssetDir:      "assets",
		AssetURL:      "/assets/",
		GrammarSource: SourceAssets,
		UpstreamURL:   DefaultUpstreamURL,
		DataDir:       ".ankimd",
		Port:          8765,
		DebounceMS:    50,
		LogLevel:      "info",
	}
}

// DefaultRenderConfig is the configuration used when none (or garbage) was
// supplied: no configured languages, the built-in theme pair, card chrome on.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Languages: []string{},
		Themes:    Themes{Light: DefaultLightTheme, Dark: DefaultDarkTheme},
	}
}
