package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMissingOrMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "{not json", "[1,2,3]", `"str"`, "null"} {
		cfg := Resolve([]byte(raw))
		assert.Equal(t, DefaultRenderConfig(), cfg, "input %q", raw)
	}
}

func TestResolveLanguages(t *testing.T) {
	cfg := Resolve([]byte(`{"languages":[" go ","json","go","",7,null,"rust"]}`))
	assert.Equal(t, []string{"go", "json", "rust"}, cfg.Languages)
	assert.Nil(t, cfg.AvailableLanguages)
}

func TestResolveEmptyLanguagesFallsBackToDefault(t *testing.T) {
	cfg := Resolve([]byte(`{"languages":["  ",""]}`))
	assert.Empty(t, cfg.Languages)
	assert.NotNil(t, cfg.Languages)
}

func TestResolveIntersectsAvailableLanguages(t *testing.T) {
	cfg := Resolve([]byte(`{"languages":["go","Python","swift"],"availableLanguages":["python","GO"]}`))
	assert.Equal(t, []string{"go", "Python"}, cfg.Languages)
	assert.Equal(t, []string{"python", "GO"}, cfg.AvailableLanguages)
}

func TestResolveEmptyAvailableLanguagesRemovesAll(t *testing.T) {
	cfg := Resolve([]byte(`{"languages":["go"],"availableLanguages":[]}`))
	assert.Empty(t, cfg.Languages)
	assert.NotNil(t, cfg.AvailableLanguages)
}

func TestResolveThemes(t *testing.T) {
	cfg := Resolve([]byte(`{"themes":{"light":"L","dark":"D"}}`))
	assert.Equal(t, Themes{Light: "L", Dark: "D"}, cfg.Themes)

	partial := Resolve([]byte(`{"themes":{"dark":"dracula","light":42}}`))
	assert.Equal(t, Themes{Light: DefaultLightTheme, Dark: "dracula"}, partial.Themes)

	wrong := Resolve([]byte(`{"themes":"monokai"}`))
	assert.Equal(t, DefaultRenderConfig().Themes, wrong.Themes)
}

func TestResolveCardless(t *testing.T) {
	assert.True(t, Resolve([]byte(`{"cardless":true}`)).Cardless)
	assert.False(t, Resolve([]byte(`{"cardless":"yes"}`)).Cardless)
	assert.False(t, Resolve([]byte(`{}`)).Cardless)
}

func TestResolveIsPure(t *testing.T) {
	raw := []byte(`{"languages":["json"],"themes":{"light":"L","dark":"D"}}`)
	assert.Equal(t, Resolve(raw), Resolve(raw))
}

func TestFromGlobal(t *testing.T) {
	t.Setenv(GlobalEnvVar, `{"languages":["go"]}`)
	assert.Equal(t, []string{"go"}, Resolve(FromGlobal()).Languages)
}
