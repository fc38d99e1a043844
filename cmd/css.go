package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cssCmd = &cobra.Command{
	Use:   "css",
	Short: "Print the highlight stylesheet for the configured themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := startEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), engine.CSS())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cssCmd)
}
