package tabular

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jmehdipour/voidview/internal/lock"
	"github.com/jmehdipour/voidview/internal/metrics"
	"go.uber.org/zap"
)

// SeedFunc fills a freshly created file before its first save.
type SeedFunc func(*Set) error

type Option func(*Backend)

// WithSeed registers fn to run when file is created on first use.
func WithSeed(file File, fn SeedFunc) Option {
	return func(b *Backend) { b.seeds[file] = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// Backend owns the storage directory and the lock of every file. All access
// goes through View or Update, which reload the file each time; no table data
// is shared between calls.
type Backend struct {
	dir    string
	locker lock.Locker
	log    *zap.Logger
	seeds  map[File]SeedFunc
}

// Open prepares dir and creates any file that does not exist yet.
func Open(ctx context.Context, dir string, locker lock.Locker, opts ...Option) (*Backend, error) {
	if dir == "" {
		return nil, errors.New("tabular: empty storage dir")
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	b := &Backend{
		dir:    dir,
		locker: locker,
		log:    zap.NewNop(),
		seeds:  make(map[File]SeedFunc),
	}
	for _, o := range opts {
		o(b)
	}
	for _, f := range Files() {
		if err := b.ensure(ctx, f); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Dir is the storage directory.
func (b *Backend) Dir() string { return b.dir }

// Path is the absolute location of a file's workbook.
func (b *Backend) Path(f File) string { return filepath.Join(b.dir, f.Filename()) }

func (b *Backend) ensure(ctx context.Context, f File) (err error) {
	schemas, err := schemaOf(f)
	if err != nil {
		return err
	}
	defer b.observe(f, "init", time.Now(), &err)

	unlock, err := b.acquire(ctx, f)
	if err != nil {
		return err
	}
	defer unlock()

	path := b.Path(f)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	set := newSet(schemas)
	if seed := b.seeds[f]; seed != nil {
		if err := seed(set); err != nil {
			return fmt.Errorf("seed %s: %w", f, err)
		}
	}
	if err := writeWorkbook(path, set); err != nil {
		return err
	}
	b.log.Info("storage file created", zap.String("file", f.String()), zap.String("path", path))
	return nil
}

// View loads file under its lock and hands the tables to fn. Changes fn makes
// are discarded.
func (b *Backend) View(ctx context.Context, f File, fn func(*Set) error) (err error) {
	schemas, err := schemaOf(f)
	if err != nil {
		return err
	}
	defer b.observe(f, "view", time.Now(), &err)

	unlock, err := b.acquire(ctx, f)
	if err != nil {
		return err
	}
	defer unlock()

	set, err := readWorkbook(b.Path(f), schemas)
	if err != nil {
		return err
	}
	return fn(set)
}

// Update runs a load, mutate, save cycle under the file lock. When fn returns
// an error nothing is written and the error is returned as is.
func (b *Backend) Update(ctx context.Context, f File, fn func(*Set) error) (err error) {
	schemas, err := schemaOf(f)
	if err != nil {
		return err
	}
	defer b.observe(f, "update", time.Now(), &err)

	unlock, err := b.acquire(ctx, f)
	if err != nil {
		return err
	}
	defer unlock()

	set, err := readWorkbook(b.Path(f), schemas)
	if err != nil {
		return err
	}
	if err := fn(set); err != nil {
		return err
	}
	if err := writeWorkbook(b.Path(f), set); err != nil {
		b.log.Error("storage save failed", zap.String("file", f.String()), zap.Error(err))
		return fmt.Errorf("save %s: %w", f, err)
	}
	return nil
}

func (b *Backend) acquire(ctx context.Context, f File) (lock.Unlock, error) {
	start := time.Now()
	unlock, err := b.locker.Lock(ctx, f.String())
	metrics.StorageLockWait.WithLabelValues(f.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", f, err)
	}
	return unlock, nil
}

func (b *Backend) observe(f File, op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	metrics.StorageOpsTotal.WithLabelValues(f.String(), op, result).Inc()
	metrics.StorageOpDuration.WithLabelValues(f.String(), op).Observe(time.Since(start).Seconds())
}
