package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/grammars"
	"github.com/ziadkadry99/anki-md/internal/highlight"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// loadConfig loads and validates the config and configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ankimd init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.Configure(level, ""); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, nil
}

// newLoader returns the loader for the configured grammar source. Asset and
// HTTP sources fall back to chroma's bundled definitions.
func newLoader(cfg *config.Config) highlight.Loader {
	switch cfg.GrammarSource {
	case config.SourceBundled:
		return highlight.BundledLoader{}
	case config.SourceHTTP:
		return highlight.ChainLoader{highlight.NewHTTPLoader(cfg.AssetURL, nil), highlight.BundledLoader{}}
	default:
		return highlight.ChainLoader{highlight.NewFSLoader(os.DirFS(cfg.AssetDir)), highlight.BundledLoader{}}
	}
}

// startEngine builds the highlight engine and waits for it to load.
func startEngine(ctx context.Context, cfg *config.Config) (*highlight.Engine, error) {
	engine := highlight.New(cfg.RenderConfig(), newLoader(cfg),
		highlight.WithOnDemand(cfg.OnDemand),
		highlight.WithLogger(logger.Logger))
	engine.Start(ctx)
	if err := engine.Wait(ctx); err != nil {
		return nil, fmt.Errorf("loading highlighter: %w", err)
	}
	return engine, nil
}

func newStore(cfg *config.Config) *grammars.Store {
	return grammars.New(cfg.AssetDir,
		grammars.WithUpstream(cfg.UpstreamURL),
		grammars.WithLogger(logger.Logger))
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(name string) (string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}
