// Package app wires the profile-core components (fetch, source, vendor,
// profile) into the handful of named operations the CLI exposes, the
// way the teacher's internal/app.Preflight composes its compiler,
// planner, and providers behind New.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/profilecore/internal/adapters/logging"
	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
	"github.com/felixgeelhaar/profilecore/internal/domain/resolve"
	"github.com/felixgeelhaar/profilecore/internal/domain/source"
	"github.com/felixgeelhaar/profilecore/internal/domain/vendor"
	"github.com/felixgeelhaar/profilecore/internal/ports"
)

// App is the CLI's application orchestrator: the write-once Fetcher and
// Source Reader registries (spec.md §9 "Global state") plus the
// resolved cache configuration.
type App struct {
	out            io.Writer
	fs             ports.FileSystem
	log            ports.Logger
	fetchers       *fetch.Registry
	readers        *source.Registry
	cacheDir       string
	defaultVariant string
}

// DefaultVariant returns profilecore.toml's configured
// default_archive_variant ("" if unset).
func (a *App) DefaultVariant() string { return a.defaultVariant }

// New builds an App with the two mandatory fetchers (local directory,
// local archive) and the two collaborator stubs (URL, git) registered in
// that order, plus the built-in standard-layout source reader. Logging
// goes to stderr at the given level so it never interleaves with a
// command's stdout payload (info/check JSON, archive confirmation).
func New(out io.Writer, cfg Config, level ports.Level) *App {
	fetchers := fetch.NewRegistry(
		fetch.LocalDirFetcher{},
		fetch.LocalArchiveFetcher{},
		fetch.URLFetcher{},
		fetch.GitFetcher{},
	)
	readers := source.NewRegistry(source.NewStandardReader)
	log := logging.NewConsoleLogger(logging.WithLevel(level))

	return &App{
		out:            out,
		fs:             ports.NewRealFileSystem(),
		log:            log,
		fetchers:       fetchers,
		readers:        readers,
		cacheDir:       cfg.CacheDir,
		defaultVariant: cfg.DefaultVariant,
	}
}

// Info builds a Profile over target and returns its normalized info
// (checks-stripped, impact-clamped).
func (a *App) Info(ctx context.Context, target string, opts profile.Options) (*profile.NormalizedParams, error) {
	a.log.Debug(ctx, "resolving profile", ports.F("target", target))
	p, err := profile.ForTarget(ctx, a.fetchers, a.readers, target, opts)
	if err != nil {
		a.log.Error(ctx, "resolve failed", ports.F("target", target), ports.F("error", err.Error()))
		return nil, err
	}
	return p.Info()
}

// Check builds a Profile over target and runs its structured validation.
func (a *App) Check(ctx context.Context, target string, opts profile.Options) (profile.CheckReport, error) {
	a.log.Debug(ctx, "resolving profile", ports.F("target", target))
	p, err := profile.ForTarget(ctx, a.fetchers, a.readers, target, opts)
	if err != nil {
		a.log.Error(ctx, "resolve failed", ports.F("target", target), ports.F("error", err.Error()))
		return profile.CheckReport{}, err
	}
	report := p.Check()
	a.log.Info(ctx, "check complete",
		ports.F("target", target),
		ports.F("valid", report.Summary.Valid),
		ports.F("errors", len(report.Errors)),
		ports.F("warnings", len(report.Warnings)))
	return report, nil
}

// Archive builds a Profile over target and packages it per archOpts.
func (a *App) Archive(ctx context.Context, target string, archOpts profile.ArchiveOptions, opts profile.Options) (bool, error) {
	p, err := profile.ForTarget(ctx, a.fetchers, a.readers, target, opts)
	if err != nil {
		a.log.Error(ctx, "resolve failed", ports.F("target", target), ports.F("error", err.Error()))
		return false, err
	}
	ok, err := p.Archive(a.fs, archOpts)
	if err != nil {
		a.log.Error(ctx, "archive failed", ports.F("target", target), ports.F("error", err.Error()))
		return false, err
	}
	a.log.Info(ctx, "archive written", ports.F("target", target), ports.F("wrote", ok))
	return ok, nil
}

// LockedDependencies builds a Profile over target and resolves its
// declared dependencies against a vendor cache rooted per spec.md §4.8:
// the current directory when target is itself a local directory, else
// the configured (or default user) cache directory.
func (a *App) LockedDependencies(ctx context.Context, target string, opts profile.Options) (*resolve.Graph, error) {
	p, err := profile.ForTarget(ctx, a.fetchers, a.readers, target, opts)
	if err != nil {
		a.log.Error(ctx, "resolve failed", ports.F("target", target), ports.F("error", err.Error()))
		return nil, err
	}

	root, err := a.vendorRoot(target)
	if err != nil {
		return nil, err
	}
	a.log.Debug(ctx, "resolving vendor cache", ports.F("root", root))
	idx, err := vendor.New(root, a.fs)
	if err != nil {
		return nil, err
	}

	return p.LockedDependencies(idx)
}

func (a *App) vendorRoot(target string) (string, error) {
	if a.fs.IsDir(target) {
		return os.Getwd()
	}
	if a.cacheDir != "" {
		return a.cacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("app: resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "profilecore"), nil
}
