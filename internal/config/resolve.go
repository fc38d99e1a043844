package config

import (
	"bytes"
	"os"

	"github.com/tidwall/gjson"
)

// GlobalEnvVar is the well-known global binding for the render config.
const GlobalEnvVar = "ANKI_MD_CONFIG"

// Resolve turns a raw JSON render config into a RenderConfig. Missing or
// unparseable input yields DefaultRenderConfig; wrong-typed members are
// skipped individually rather than rejecting the whole object.
func Resolve(raw []byte) RenderConfig {
	if len(bytes.TrimSpace(raw)) == 0 || !gjson.ValidBytes(raw) {
		return DefaultRenderConfig()
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return DefaultRenderConfig()
	}

	cfg := DefaultRenderConfig()
	cfg.Languages = stringArray(root.Get("languages"))

	if av := root.Get("availableLanguages"); av.IsArray() {
		cfg.AvailableLanguages = stringArray(av)
	}

	if themes := root.Get("themes"); themes.IsObject() {
		if light := themes.Get("light"); light.Type == gjson.String {
			cfg.Themes.Light = light.String()
		}
		if dark := themes.Get("dark"); dark.Type == gjson.String {
			cfg.Themes.Dark = dark.String()
		}
	}

	cfg.Cardless = root.Get("cardless").Type == gjson.True
	return Normalize(cfg)
}

// Normalize applies the render config invariants: languages trimmed,
// non-empty, deduplicated in order and, when AvailableLanguages is set,
// restricted to it; blank themes replaced by the built-in pair.
func Normalize(cfg RenderConfig) RenderConfig {
	out := RenderConfig{
		Languages: dedupe(cfg.Languages),
		Themes:    cfg.Themes,
		Cardless:  cfg.Cardless,
	}

	if cfg.AvailableLanguages != nil {
		out.AvailableLanguages = dedupe(cfg.AvailableLanguages)
		available := make(map[string]bool, len(out.AvailableLanguages))
		for _, name := range out.AvailableLanguages {
			available[lower(name)] = true
		}
		kept := out.Languages[:0]
		for _, name := range out.Languages {
			if available[lower(name)] {
				kept = append(kept, name)
			}
		}
		out.Languages = kept
	}

	if out.Themes.Light = trim(out.Themes.Light); out.Themes.Light == "" {
		out.Themes.Light = DefaultLightTheme
	}
	if out.Themes.Dark = trim(out.Themes.Dark); out.Themes.Dark == "" {
		out.Themes.Dark = DefaultDarkTheme
	}
	return out
}

// FromGlobal reads the render config from the ANKI_MD_CONFIG binding.
func FromGlobal() []byte {
	return []byte(os.Getenv(GlobalEnvVar))
}

// stringArray returns the trimmed, non-empty string members of an array,
// ignoring members of any other type. Never nil.
func stringArray(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			continue
		}
		out = append(out, item.String())
	}
	return dedupe(out)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = trim(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
