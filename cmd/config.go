package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := requireConfig(ctx)
			if err != nil {
				return err
			}
			return printConfig(writerOr(cmd.Root().Writer, os.Stdout), cfg)
		},
	}
}

func printConfig(out io.Writer, cfg *config.Config) error {
	fmt.Fprintln(out, "====================")
	fmt.Fprintln(out, "Active Configuration:")

	fmt.Fprintln(out, "\nDatabase:")
	fmt.Fprintf(out, "  Driver: %s\n", cfg.Database.Driver)
	fmt.Fprintf(out, "  DSN: %s\n", cfg.Database.DSN)
	fmt.Fprintf(out, "  Query Timeout: %s\n", cfg.Database.QueryTimeout)
	fmt.Fprintf(out, "  Max Open Connections: %d\n", cfg.Database.MaxOpenConns)

	fmt.Fprintln(out, "\nStore:")
	fmt.Fprintf(out, "  Path: %s\n", cfg.Store.Path)
	fmt.Fprintf(out, "  Default Top K: %d\n", cfg.Store.DefaultTopK)
	fmt.Fprintf(out, "  Description: %s\n", cfg.Store.Description)

	fmt.Fprintln(out, "\nCompletion:")
	fmt.Fprintf(out, "  Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(out, "  Model: %s\n", cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		fmt.Fprintf(out, "  Base URL: %s\n", cfg.LLM.BaseURL)
	}
	fmt.Fprintf(out, "  API Key: %s\n", maskSecret(cfg.LLM.APIKey))
	fmt.Fprintf(out, "  Temperature: %g\n", cfg.LLM.Temperature)
	fmt.Fprintf(out, "  Max Tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.LLM.Timeout)

	fmt.Fprintln(out, "\nEmbedding:")
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Embedding.Provider)
	if cfg.Embedding.Provider == "ollama" {
		fmt.Fprintf(out, "  Model: %s\n", cfg.Embedding.Model)
		fmt.Fprintf(out, "  Base URL: %s\n", cfg.Embedding.BaseURL)
		fmt.Fprintf(out, "  Cache Directory: %s\n", cfg.Embedding.CacheDir)
	}
	fmt.Fprintf(out, "  Dimensions: %d\n", cfg.Embedding.Dimensions)

	fmt.Fprintln(out, "\nSynthesis:")
	fmt.Fprintf(out, "  Max Attempts: %d\n", cfg.Synthesis.MaxAttempts)

	fmt.Fprintln(out, "\nLogging:")
	fmt.Fprintf(out, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(out, "  Output: %s\n", cfg.Logging.Output)
	if cfg.Logging.Output == "file" {
		fmt.Fprintf(out, "  File: %s\n", cfg.Logging.File)
	}
	fmt.Fprintf(out, "  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Fprintln(out, "\nDebug:")
	fmt.Fprintf(out, "  Enabled: %t\n", cfg.Debug.Enabled)
	if cfg.Debug.Enabled {
		fmt.Fprintf(out, "  Metrics Port: %d\n", cfg.Debug.MetricsPort)
	}
	fmt.Fprintf(out, "  Verbose: %t\n", cfg.Debug.Verbose)

	if cfg.Debug.Enabled {
		fmt.Fprintln(out, "\nRaw Configuration (JSON):")
		fmt.Fprintln(out, "==========================")

		redacted := *cfg
		redacted.LLM.APIKey = maskSecret(cfg.LLM.APIKey)

		jsonData, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Fprintln(out, string(jsonData))
	}

	return nil
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "********"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}
