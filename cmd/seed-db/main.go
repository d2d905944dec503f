// Command seed-db migrates the database and seeds demo accounts and a
// starter catalog. It is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/auth"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/repository"
)

type seedUser struct {
	username, first, last, email string
	staff                        bool
}

var users = []seedUser{
	{username: "admin", first: "Store", last: "Admin", email: "admin@example.com", staff: true},
	{username: "customer", first: "Demo", last: "Customer", email: "customer@example.com"},
}

var catalog = []product.Product{
	{Name: "Margherita Pizza", Description: "Tomato, mozzarella and basil", Price: decimal.RequireFromString("42.90"), Image: "products/margherita.png"},
	{Name: "Pepperoni Pizza", Description: "Pepperoni and mozzarella", Price: decimal.RequireFromString("47.50"), Image: "products/pepperoni.png"},
	{Name: "Cheeseburger", Description: "Beef patty, cheddar and pickles", Price: decimal.RequireFromString("29.90"), Promotion: true},
	{Name: "French Fries", Description: "Large portion", Price: decimal.RequireFromString("14.00")},
	{Name: "Cola 350ml", Description: "Canned soda", Price: decimal.RequireFromString("6.50"), Promotion: true},
	{Name: "Orange Juice", Description: "Freshly squeezed, 500ml", Price: decimal.RequireFromString("11.00")},
}

func main() {
	var (
		databaseURL string
		password    string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&password, "password", "", "password for seeded accounts (or ORDERS_SEED_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if password == "" {
		password = os.Getenv("ORDERS_SEED_PASSWORD")
	}
	if len(password) < 8 {
		lg.Fatal("Seed password of at least 8 characters is required: set --password or ORDERS_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, password); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, password string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, lg, repository.NewUserRepository(pool), password); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedCatalog(ctx, lg, repository.NewProductRepository(pool)); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	return nil
}

func seedUsers(ctx context.Context, lg *zap.Logger, repo *repository.UserRepository, password string) error {
	hash, err := auth.Bcrypt{}.Hash(password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	for _, su := range users {
		switch _, err := repo.GetByUsername(ctx, su.username); {
		case err == nil:
			lg.Info("User exists", zap.String("username", su.username))
			continue
		case !errors.Is(err, user.ErrNotFound):
			return errors.Wrapf(err, "lookup %s", su.username)
		}

		u := &user.User{
			UUID:         uuid.New(),
			Username:     su.username,
			FirstName:    su.first,
			LastName:     su.last,
			Email:        su.email,
			PasswordHash: hash,
			IsStaff:      su.staff,
			IsActive:     true,
		}
		if err := repo.Create(ctx, u); err != nil {
			return errors.Wrapf(err, "create %s", su.username)
		}
		lg.Info("User created", zap.String("username", u.Username), zap.Bool("staff", u.IsStaff))
	}
	return nil
}

func seedCatalog(ctx context.Context, lg *zap.Logger, repo *repository.ProductRepository) error {
	for _, p := range catalog {
		p.UUID = uuid.New()
		p.IsActive = true
		inserted, err := repo.Upsert(ctx, &p)
		if err != nil {
			return errors.Wrapf(err, "upsert %s", p.Name)
		}
		lg.Info("Product upserted", zap.String("name", p.Name), zap.Bool("inserted", inserted))
	}
	return nil
}
