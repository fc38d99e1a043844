package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/manifoldco/promptui"
)

// validateLanguages checks a comma-separated language list against the
// grammars chroma knows about.
func validateLanguages(input string) error {
	for _, name := range splitAndTrim(input) {
		if IsBuiltinTextLanguage(name) {
			continue
		}
		if lexers.Get(name) == nil {
			return fmt.Errorf("unknown language %q", name)
		}
	}
	return nil
}

// themeNames returns chroma's style names, sorted.
func themeNames() []string {
	names := styles.Names()
	sort.Strings(names)
	return names
}

// selectTheme runs a select prompt for one theme slot.
func selectTheme(label, current string) (string, error) {
	names := themeNames()
	cursor := 0
	for i, n := range names {
		if n == current {
			cursor = i
			break
		}
	}
	prompt := promptui.Select{
		Label:     label,
		Items:     names,
		CursorPos: cursor,
		Size:      12,
		Searcher: func(input string, index int) bool {
			return strings.Contains(names[index], strings.ToLower(input))
		},
	}
	_, name, err := prompt.Run()
	return name, err
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to anki-md! Let's configure syntax highlighting.")
	fmt.Println()

	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
	}

	// 1. Languages.
	langPrompt := promptui.Prompt{
		Label:    "Languages to highlight (comma-separated, e.g. go,python,json)",
		Default:  strings.Join(cfg.Languages, ","),
		Validate: validateLanguages,
	}
	langStr, err := langPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("language selection: %w", err)
	}
	langs := splitAndTrim(langStr)
	if len(langs) == 0 {
		return nil, fmt.Errorf("please select at least one language")
	}

	// 2. Themes.
	light, err := selectTheme("Light mode theme", cfg.Themes.Light)
	if err != nil {
		return nil, fmt.Errorf("light theme selection: %w", err)
	}
	dark, err := selectTheme("Dark mode theme", cfg.Themes.Dark)
	if err != nil {
		return nil, fmt.Errorf("dark theme selection: %w", err)
	}

	// 3. Card chrome.
	cardlessPrompt := promptui.Prompt{
		Label:     "Render without card chrome (cardless)",
		IsConfirm: true,
	}
	_, cardlessErr := cardlessPrompt.Run()

	cfg.Languages = langs
	cfg.Themes = Themes{Light: light, Dark: dark}
	cfg.Cardless = cardlessErr == nil

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Println("Run `ankimd grammars sync` to download the selected languages.")
	return cfg, nil
}
