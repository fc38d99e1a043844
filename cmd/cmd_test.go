package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("ankimd %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if got := run(t, "version"); got != "ankimd dev\n" {
		t.Errorf("version = %q", got)
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "field.md")
	if err := os.WriteFile(input, []byte("# Hi\n\n`a < b`"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANKIMD_GRAMMAR_SOURCE", "bundled")

	got := run(t, "--config", filepath.Join(dir, "missing.yml"), "render", input)
	want := "<h1>Hi</h1>\n<p><code>a &lt; b</code></p>\n"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestGrammarsConfig(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	if err := os.MkdirAll(assets, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "_lang-go.xml"), []byte("<lexer/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANKIMD_ASSET_DIR", assets)
	t.Setenv("ANKIMD_LANGUAGES", "go")

	got := run(t, "--config", filepath.Join(dir, "missing.yml"), "grammars", "config")
	if !strings.Contains(got, `"availableLanguages":["go"]`) || !strings.Contains(got, `id="anki-md-config"`) {
		t.Errorf("grammars config = %q", got)
	}
}
