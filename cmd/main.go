package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const version = "0.5.0"

func main() {
	// A .env file is optional; deployments set the variables directly.
	_ = godotenv.Load()

	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{
		ConfigPath:  "config.toml",
		Logger:      logger,
		Interactive: isTerminal(os.Stdout),
	})
	defer runner.Close()

	app := runner.app()
	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrReauthRequired):
			logger.Error(err.Error(), "hint", "run `ytcat auth login`")
			os.Exit(1)
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Error(err.Error(), "hint", "set credentials.youtube in config.toml or run `ytcat setup config`")
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "ytcat",
		Usage:   "Categorize your YouTube playlists",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("json") {
				r.interactive = false
			}
			return r.configure(ctx, cmd)
		},
		Commands: r.register(),
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
