package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mgit/pkg/config"
	"mgit/pkg/core"
	"mgit/pkg/exporter"
	"mgit/pkg/ignore"
	"mgit/pkg/index"
	"mgit/pkg/meta"
	"mgit/pkg/odb"
	"mgit/pkg/refs"
	"mgit/pkg/storage"
	"mgit/pkg/storage/cache"
	"mgit/pkg/storage/disk"
	"mgit/pkg/storage/s3"
	"mgit/pkg/treebuilder"
	"mgit/pkg/worktree"
)

var ErrNotInitialized = errors.New("not an mgit repository")

// App holds the long-lived services of one repository.
type App struct {
	Settings   *config.Settings
	Store      storage.Store
	ODB        *odb.Database
	Index      *index.Index // nil when the stat cache is disabled
	Repository *meta.Repository
	Refs       *refs.Manager
	Exporter   *exporter.Exporter

	closers []func() error
}

// Init creates the metadata directory layout. It reports whether the
// repository already existed.
func Init(ctx context.Context, s *config.Settings) (existed bool, err error) {
	if _, err := os.Stat(s.MetaDir()); err == nil {
		existed = true
	}
	if err := os.MkdirAll(s.MetaDir(), 0755); err != nil {
		return existed, fmt.Errorf("create %s: %w", s.MetaDir(), err)
	}
	if s.Storage.Type == "disk" {
		if err := os.MkdirAll(s.Storage.Path, 0755); err != nil {
			return existed, fmt.Errorf("create %s: %w", s.Storage.Path, err)
		}
	}

	// opening the database migrates the schema
	db, err := meta.NewDB(ctx, dbConfig(s))
	if err != nil {
		return existed, err
	}
	return existed, db.Close()
}

// NewApp wires every service from s. The repository must be initialized.
func NewApp(ctx context.Context, s *config.Settings) (*App, error) {
	if _, err := os.Stat(s.MetaDir()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, s.Repo.Path)
	}

	a := &App{Settings: s}

	store, err := initStore(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if s.Cache.RedisURL != "" {
		cached, err := cache.NewCachedStore(store, cache.Config{
			RedisURL:    s.Cache.RedisURL,
			TTL:         s.Cache.TTL,
			WritePolicy: storage.WritePolicy(s.Storage.WritePolicy),
		})
		if err != nil {
			// the cache is an accelerator only
			slog.Warn("redis cache unavailable, continuing without it", slog.String("err", err.Error()))
		} else {
			store = cached
			a.closers = append(a.closers, cached.Close)
		}
	}
	a.Store = store

	buildOpts := []treebuilder.Option{treebuilder.WithConcurrency(s.Build.Concurrency)}
	if s.Build.StatCache {
		idx, err := index.Open(filepath.Join(s.MetaDir(), "index"))
		if err != nil {
			return nil, fmt.Errorf("failed to load index: %w", err)
		}
		a.Index = idx
		buildOpts = append(buildOpts, treebuilder.WithIndex(idx, s.Repo.Path))
	}

	matcher, err := ignore.NewMatcher(s.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	a.ODB = odb.New(store,
		core.Identity{Name: s.User.Name, Email: s.User.Email},
		odb.WithLister(worktree.NewFS(s.Repo.Path, matcher)),
		odb.WithBuildOptions(buildOpts...),
	)
	a.Exporter = exporter.NewExporter(a.ODB)

	db, err := meta.NewDB(ctx, dbConfig(s))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.Repository = meta.NewRepository(db)
	a.Refs = refs.NewManager(a.Repository)

	return a, nil
}

// Close persists the stat cache and releases connections.
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Save())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func initStore(ctx context.Context, s *config.Settings) (storage.Store, error) {
	policy, err := storage.ParseWritePolicy(s.Storage.WritePolicy)
	if err != nil {
		return nil, err
	}

	switch s.Storage.Type {
	case "disk", "":
		return disk.NewAdapter(s.Storage.Path, disk.WithWritePolicy(policy))
	case "s3":
		return s3.NewAdapter(ctx, s3.Config{
			Endpoint:        s.Storage.S3.Endpoint,
			Region:          s.Storage.S3.Region,
			Bucket:          s.Storage.S3.Bucket,
			AccessKeyID:     s.Storage.S3.AccessKey,
			SecretAccessKey: s.Storage.S3.SecretKey,
			WritePolicy:     policy,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Storage.Type)
	}
}

func dbConfig(s *config.Settings) meta.Config {
	return meta.Config{
		Driver:   s.Database.Driver,
		Path:     s.Database.Path,
		Host:     s.Database.Host,
		Port:     s.Database.Port,
		User:     s.Database.User,
		Password: s.Database.Password,
		DBName:   s.Database.DBName,
		SSLMode:  s.Database.SSLMode,
	}
}
