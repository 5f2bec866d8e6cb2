package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/c-c-k/progirl/internal"
	pkgconfig "github.com/c-c-k/progirl/pkg/config"
)

var version = "dev"

// loadConfig reads the config file named by the --config flag. A missing
// file leaves the defaults in place.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if active := cmd.String("collection"); active != "" {
		cfg.PKB.Active = active
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "progirl",
		Usage:   "Personal knowledge base helper: note URIs, Markdown links and note creation",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "collection",
				Aliases: []string{"C"},
				Usage:   "Active collection id or name",
				Sources: cli.EnvVars("PROGIRL_COLLECTION"),
			},
		},
		Commands: []*cli.Command{
			resolveCommand(),
			gotoCommand(),
			exCommand(),
			newCommand(),
			linkCommand(),
			refsCommand(),
			idCommand(),
			collectionsCommand(),
			indexCommand(),
			searchCommand(),
			backlinksCommand(),
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live index updates",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
