package catalog

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-desk/internal/domain/product"
)

// Upserter writes products keyed by name.
type Upserter interface {
	Upsert(ctx context.Context, p *product.Product) (inserted bool, err error)
}

// Config tunes an import run.
type Config struct {
	// Workers is the number of concurrent upserts.
	Workers int
	// ExpectedNames sizes the duplicate filter.
	ExpectedNames uint
	// FalsePositiveRate of the duplicate filter. A false positive skips a
	// product that was not seen before.
	FalsePositiveRate float64
}

// Stats summarizes an import run.
type Stats struct {
	Read       int64
	Invalid    int64
	Duplicates int64
	Inserted   int64
	Updated    int64
}

// Importer loads gzip NDJSON feeds into the catalog.
type Importer struct {
	repo Upserter
	lg   *zap.Logger
	cfg  Config
}

// NewImporter creates an Importer.
func NewImporter(repo Upserter, lg *zap.Logger, cfg Config) *Importer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ExpectedNames == 0 {
		cfg.ExpectedNames = 1_000_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 1e-6
	}
	return &Importer{repo: repo, lg: lg, cfg: cfg}
}

// Import reads every file concurrently. The first occurrence of a product
// name across all feeds is upserted; later ones are counted as duplicates.
// Names are compared case-insensitively after trimming.
func (im *Importer) Import(ctx context.Context, paths ...string) (Stats, error) {
	var (
		stats  Stats
		mu     sync.Mutex
		filter = bloom.NewWithEstimates(im.cfg.ExpectedNames, im.cfg.FalsePositiveRate)
	)
	firstSeen := func(name string) bool {
		key := strings.ToLower(strings.TrimSpace(name))
		mu.Lock()
		defer mu.Unlock()
		return !filter.TestOrAddString(key)
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan Entry, im.cfg.Workers*4)

	var readers sync.WaitGroup
	for _, path := range paths {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			err := Read(ctx, path, func(e Entry, err error) error {
				atomic.AddInt64(&stats.Read, 1)
				if err == nil {
					err = validate(e)
				}
				if err != nil {
					atomic.AddInt64(&stats.Invalid, 1)
					im.lg.Warn("Skipping feed entry", zap.String("file", path), zap.Error(err))
					return nil
				}
				if !firstSeen(e.Name) {
					atomic.AddInt64(&stats.Duplicates, 1)
					return nil
				}
				select {
				case work <- e:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			im.lg.Info("Feed read", zap.String("file", path))
			return nil
		})
	}
	go func() {
		readers.Wait()
		close(work)
	}()

	for range im.cfg.Workers {
		g.Go(func() error {
			for e := range work {
				inserted, err := im.repo.Upsert(ctx, &product.Product{
					UUID:        uuid.New(),
					Name:        strings.TrimSpace(e.Name),
					Description: e.Description,
					Price:       e.Price,
					Promotion:   e.Promotion,
					Image:       e.Image,
					IsActive:    true,
				})
				if err != nil {
					return errors.Wrapf(err, "upsert %q", e.Name)
				}
				if inserted {
					atomic.AddInt64(&stats.Inserted, 1)
				} else {
					atomic.AddInt64(&stats.Updated, 1)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return stats, err
}

func validate(e Entry) error {
	return product.Input{
		Name:        e.Name,
		Description: e.Description,
		Price:       e.Price,
		Promotion:   e.Promotion,
		Image:       e.Image,
	}.Validate()
}
