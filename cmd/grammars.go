package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/anki-md/internal/progress"
)

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "Manage downloaded grammars and themes",
}

var grammarsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download configured grammars and themes that are missing or broken",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := newStore(cfg)
		downloaded, errs := store.Sync(cmd.Context(), cfg.RenderConfig(), progress.NewReporter("Syncing grammars"))

		out := cmd.OutOrStdout()
		for _, name := range downloaded {
			fmt.Fprintf(out, "downloaded %s\n", name)
		}
		for _, err := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
		if len(downloaded) == 0 && len(errs) == 0 {
			fmt.Fprintln(out, "Everything up to date.")
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d downloads failed", len(errs))
		}
		return nil
	},
}

var grammarsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grammars and themes in the asset directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := newStore(cfg)
		langs, err := store.LocalLangs()
		if err != nil {
			return err
		}
		themes, err := store.LocalThemes()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Languages (%d): %s\n", len(langs), strings.Join(langs, ", "))
		fmt.Fprintf(out, "Themes (%d): %s\n", len(themes), strings.Join(themes, ", "))
		for _, lang := range cfg.Languages {
			if store.NeedsRedownload(lang) {
				fmt.Fprintf(out, "  %s needs sync\n", lang)
			}
		}
		return nil
	},
}

var grammarsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove grammars and themes the config no longer uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		removed, err := newStore(cfg).Cleanup(cfg.RenderConfig())
		for _, name := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
		}
		return err
	},
}

var grammarsConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the config JSON to embed in card templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		js, err := newStore(cfg).ConfigJSON(cfg.RenderConfig())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "<script type=\"application/json\" id=\"anki-md-config\">%s</script>\n", js)
		return nil
	},
}

func init() {
	grammarsCmd.AddCommand(grammarsSyncCmd, grammarsListCmd, grammarsCleanupCmd, grammarsConfigCmd)
	rootCmd.AddCommand(grammarsCmd)
}
