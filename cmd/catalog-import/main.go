// Command catalog-import loads gzip NDJSON product feeds into the catalog.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/catalog"
	"github.com/xenking/order-desk/internal/repository"
)

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app := &cli.App{
		Name:      "catalog-import",
		Usage:     "upsert products from gzip NDJSON feeds",
		ArgsUsage: "FEED.ndjson.gz [FEED.ndjson.gz...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection URL",
				EnvVars:  []string{"ORDERS_DATABASE_URL", "DATABASE_URL"},
				Required: true,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "concurrent upserts",
				Value: 4,
			},
			&cli.UintFlag{
				Name:  "expected-names",
				Usage: "expected distinct product names, sizes the duplicate filter",
				Value: 1_000_000,
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "run database migrations before importing",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one feed file is required", 2)
			}
			return run(c.Context, lg, c)
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		lg.Fatal("Catalog import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, c *cli.Context) error {
	pool, err := repository.NewPool(ctx, c.String("database-url"))
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if c.Bool("migrate") {
		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	im := catalog.NewImporter(repository.NewProductRepository(pool), lg, catalog.Config{
		Workers:       c.Int("workers"),
		ExpectedNames: c.Uint("expected-names"),
	})
	stats, err := im.Import(ctx, c.Args().Slice()...)
	lg.Info("Catalog import finished",
		zap.Int64("read", stats.Read),
		zap.Int64("invalid", stats.Invalid),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("inserted", stats.Inserted),
		zap.Int64("updated", stats.Updated),
	)
	return err
}
