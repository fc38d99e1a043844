package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/anki-md/internal/logger"
	"github.com/ziadkadry99/anki-md/internal/markup"
)

var renderEncoded bool

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a field to HTML",
	Long: `Reads Markdown from a file (or stdin) and prints the rendered HTML.
By default the input is treated as plain text; pass --encoded when it is
stored field content with entities and <br> line breaks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		input, err := readInput(name)
		if err != nil {
			return err
		}
		if !renderEncoded {
			input = markup.EncodeField(input)
		}

		engine, err := startEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		pipe := markup.New(engine, markup.WithLogger(logger.Logger))
		fmt.Fprint(cmd.OutOrStdout(), pipe.Render(cmd.Context(), input))
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderEncoded, "encoded", false, "input is entity-encoded field content")
	rootCmd.AddCommand(renderCmd)
}
