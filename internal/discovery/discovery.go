// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrpackify/mrpackify/internal/config"
	"github.com/mrpackify/mrpackify/internal/vcs"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ArchiveExt is the file extension of modpack archives.
	ArchiveExt = ".mrpack"
	// CanonicalName is the file name an archive is renamed to inside its
	// instance directory.
	CanonicalName = "instance" + ArchiveExt

	// archiveGlob matches archives at any depth below the modpacks directory.
	archiveGlob = "**/*" + ArchiveExt
)

type (
	// Discovery locates archives below one root directory inside a checkout.
	Discovery struct {
		root        string
		modpacksDir string
		differ      vcs.Differ
		logger      *slog.Logger
	}

	// Option configures a Discovery.
	Option func(*Discovery)
)

// WithDiffer replaces the go-git differ, typically with a fake in tests.
func WithDiffer(differ vcs.Differ) Option {
	return func(d *Discovery) { d.differ = differ }
}

// WithLogger sets the logger for non-fatal discovery problems.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discovery) { d.logger = logger }
}

// New creates a Discovery for cfg.Root and cfg.ModpacksDir.
func New(cfg *config.Config, opts ...Option) *Discovery {
	d := &Discovery{
		root:        cfg.Root,
		modpacksDir: cfg.ModpacksDir,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.differ == nil {
		d.differ = vcs.NewRepository(d.root)
	}
	return d
}

// Manual yields every archive below the modpacks directory, at any depth,
// except files already named instance.mrpack. A missing modpacks directory
// yields nothing. Unreadable directories are logged and skipped.
func (d *Discovery) Manual() iter.Seq[string] {
	root := filepath.Join(d.root, d.modpacksDir)

	return func(yield func(string) bool) {
		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if path == root && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipAll
				}
				d.logger.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if !isPendingArchive(entry) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil {
			d.logger.Warn("modpack scan stopped early", "root", root, "error", walkErr)
		}
	}
}

// Changed yields the archives added or modified between before and after
// that lie below the modpacks directory and still exist on disk. Paths are
// joined with the root, which may sit below the repository's top level.
//
// A failing diff (unknown revision, no repository) is logged and yields
// nothing, so an automatic run degrades to a no-op instead of failing.
func (d *Discovery) Changed(ctx context.Context, before, after string) iter.Seq[string] {
	prefix := filepath.ToSlash(filepath.Clean(d.modpacksDir)) + "/"

	return func(yield func(string) bool) {
		changed, err := d.differ.Diff(ctx, before, after)
		if err != nil {
			d.logger.Error("failed to list changed files", "before", before, "after", after, "error", err)
			return
		}

		for _, rel := range changed {
			inside, ok := strings.CutPrefix(rel, prefix)
			if !ok || !strings.HasSuffix(inside, ArchiveExt) {
				continue
			}
			if match, matchErr := doublestar.Match(archiveGlob, inside); matchErr != nil || !match {
				continue
			}

			path := filepath.Join(d.root, filepath.FromSlash(rel))
			if !isRegularFile(path) {
				d.logger.Debug("changed archive no longer exists", "path", rel)
				continue
			}
			if !yield(path) {
				return
			}
		}
	}
}

// isPendingArchive reports whether a walked entry is an archive that still
// needs processing.
func isPendingArchive(entry fs.DirEntry) bool {
	name := entry.Name()
	return entry.Type().IsRegular() &&
		strings.HasSuffix(name, ArchiveExt) &&
		name != CanonicalName
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
