package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/Domenick1991/railbooking/internal/bootstrap"
	"github.com/Domenick1991/railbooking/internal/importer"
	"github.com/Domenick1991/railbooking/internal/repository"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	var cfg *config.Config
	app := &cli.App{
		Name:  "railbooking",
		Usage: "railway ticket booking API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
				Usage:   "path to the YAML config file",
			},
		},
		Before: func(c *cli.Context) error {
			loaded, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			cfg = loaded
			setupLogger(cfg.Log)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the gRPC health server",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: func(c *cli.Context) error {
					return repository.RunMigrations(cfg.Database.URL())
				},
			},
			{
				Name:      "import-stations",
				Usage:     "create stations from a name,latitude,longitude CSV file",
				ArgsUsage: "<file.csv>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one CSV file", 2)
					}
					return importStations(c.Context, cfg, c.Args().First())
				},
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for local development",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user", Required: true, Usage: "user id placed in the subject"},
					&cli.BoolFlag{Name: "staff", Usage: "grant catalog write access"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: func(c *cli.Context) error {
					token, err := auth.NewIssuer(cfg.Auth).Issue(auth.Identity{
						UserID:  c.Int64("user"),
						IsStaff: c.Bool("staff"),
					}, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func setupLogger(cfg config.LogConfig) {
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	deps, err := container.APIDeps(ctx, cfg)
	if err != nil {
		return err
	}
	return bootstrap.Run(ctx, cfg, *deps)
}

func importStations(ctx context.Context, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	_, err = importer.ImportStations(ctx, container.Catalog, f)
	return err
}
