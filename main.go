package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	// Bundled zone data so the market time zone resolves on slim images.
	_ "time/tzdata"

	"dular-server/config"
	"dular-server/database"
	"dular-server/jobs"
	"dular-server/logger"
	"dular-server/models"
	"dular-server/services"
	"dular-server/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	root := &cli.Command{
		Name:  "dular",
		Usage: "Home services marketplace API",
		Commands: []*cli.Command{
			serveCommand(),
			workerCommand(),
			migrateCommand(),
			seedCommand(),
			recomputeCommand(),
			tokenCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, config.Load(), true)
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port, overrides PORT"},
			&cli.BoolFlag{Name: "with-worker", Value: true, Usage: "also process background tasks when REDIS_URL is set"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			if p := c.String("port"); p != "" {
				cfg.Server.Port = p
			}
			return runServer(ctx, cfg, c.Bool("with-worker"))
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Process background recompute tasks",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			appLog := logger.New(cfg.Server.Env)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			w, err := jobs.NewWorker(cfg.Jobs, cfg.Redis,
				services.NewRatingService(db, appLog), services.NewRiskService(db, appLog), appLog)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(ctx)
			defer stop()
			w.Run(ctx)
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "print migration status instead of applying (postgres only)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			if c.Bool("status") {
				if cfg.Database.Driver == "sqlite" {
					return fmt.Errorf("migration status is only tracked on postgres")
				}
				return database.MigrationStatus(cfg.Database.URL)
			}
			_, err := openDB(cfg)
			return err
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create launch neighborhoods and demo accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Value: "dular123", Usage: "password of the demo accounts"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			return seedTerritory(db.WithContext(ctx), c.String("password"))
		},
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "Rebuild provider ratings and user risk from stored facts",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			appLog := logger.New(cfg.Server.Env)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			job := jobs.NewReconcileJob(services.NewRatingService(db, appLog), services.NewRiskService(db, appLog), 0)
			providers, users, err := job.RunOnce(ctx)
			fmt.Printf("recomputed %d providers and %d users\n", providers, users)
			return err
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an access token for an existing user",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "user-id", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			var u models.User
			if err := db.WithContext(ctx).First(&u, c.Uint("user-id")).Error; err != nil {
				return fmt.Errorf("load user: %w", err)
			}
			tok, err := utils.GenerateToken(cfg.JWT, u.ID, string(u.Role))
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
}
