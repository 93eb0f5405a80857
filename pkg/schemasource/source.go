package schemasource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

// Schema source names, as used in config and metrics labels.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceGit     = "git"
)

// NewLoader returns the loader selected by cfg.Source.
func NewLoader(cfg config.SchemaConfig) (Loader, error) {
	switch cfg.Source {
	case SourceBuiltin, "":
		return BuiltinLoader{}, nil
	case SourceFile:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("schema.file_path is required for file source")
		}
		return &FileLoader{Path: cfg.FilePath}, nil
	case SourceGit:
		return NewGitSource(cfg.Git)
	default:
		return nil, fmt.Errorf("unknown schema source: %s", cfg.Source)
	}
}

// Open builds a registry for cfg and performs the initial load.
func Open(ctx context.Context, cfg config.SchemaConfig, opts ...RegistryOption) (*Registry, error) {
	loader, err := NewLoader(cfg)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry(loader, opts...)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

// StartWatching starts whatever background refresh cfg asks for: a file
// watcher when watch is set on a file source, or a pull loop when a git
// source has a poll interval. It returns a stop function, which is a no-op
// when nothing was started.
func StartWatching(ctx context.Context, cfg config.SchemaConfig, registry *Registry) (func(), error) {
	logger := slog.Default().With("component", "schemasource")

	switch {
	case cfg.Source == SourceFile && cfg.Watch:
		fw, err := NewFileWatcher(cfg.FilePath, cfg.WatchDebounce, registry)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := fw.Watch(ctx); err != nil {
				logger.Error("schema watcher exited", "error", err)
			}
		}()
		return func() {
			if err := fw.Stop(); err != nil {
				logger.Warn("failed to stop schema watcher", "error", err)
			}
		}, nil

	case cfg.Source == SourceGit && cfg.Git.PollInterval > 0:
		gs, ok := registry.loader.(*GitSource)
		if !ok {
			return nil, fmt.Errorf("registry is not backed by a git source")
		}
		pollCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			gs.Poll(pollCtx, cfg.Git.PollInterval, registry)
		}()
		logger.Info("schema repository polling started", "interval", cfg.Git.PollInterval)
		return func() {
			cancel()
			<-done
		}, nil
	}

	return func() {}, nil
}
