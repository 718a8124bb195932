// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"context"
	"crypto/sha1" //nolint:gosec // fingerprint only
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mrpackify/mrpackify/internal/archive"
	"github.com/mrpackify/mrpackify/internal/discovery"
	"github.com/mrpackify/mrpackify/internal/issue"
)

// outputMode is applied to every file the processor writes.
const outputMode fs.FileMode = 0o644

type (
	// Processor normalizes one archive at a time.
	Processor struct {
		extractor archive.Extractor
		logger    *slog.Logger
	}

	// ProcessorOption configures a Processor.
	ProcessorOption func(*Processor)

	// Result describes what processing one archive did.
	Result struct {
		// Source is the path the archive was discovered at.
		Source string
		// Path is the archive's canonical path after processing.
		Path string
		// Instance is the name of the directory holding the archive.
		Instance string
		// SHA1 is the lowercase hex digest of the archive.
		SHA1 string
		// IndexWritten is true when modrinth.index.json was extracted and annotated.
		IndexWritten bool
		// IconWritten is true when icon.png was extracted.
		IconWritten bool
		// Skipped is true when the archive vanished before it could be processed.
		Skipped bool
	}
)

// WithExtractor replaces the zip extractor.
func WithExtractor(extractor archive.Extractor) ProcessorOption {
	return func(p *Processor) { p.extractor = extractor }
}

// WithProcessorLogger sets the logger for per-archive progress.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a Processor backed by the zip extractor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		extractor: archive.NewZipExtractor(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process hashes the archive at path, writes the annotated index and the
// icon next to it, and renames it to instance.mrpack.
//
// An archive that no longer exists is logged and reported as skipped with a
// nil error. Any other failure is logged with the path and returned as an
// *issue.ActionableError; files written before the failure are left in place.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	p.logger.Info("processing modpack", "path", path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("modpack no longer exists, skipping", "path", path)
		return &Result{Source: path, Skipped: true}, nil
	}

	result, err := p.process(path)
	if err != nil {
		p.logger.Error("failed to process modpack", "path", path, "error", err)
		return nil, err
	}

	p.logger.Info("processed modpack", "instance", result.Instance)
	p.logger.Debug("modpack details",
		"instance", result.Instance,
		"sha1", result.SHA1,
		"index", result.IndexWritten,
		"icon", result.IconWritten,
		"path", result.Path,
	)
	return result, nil
}

func (p *Processor) process(path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, issue.WrapWithContext(err, "resolve archive path", path)
	}
	dir := filepath.Dir(absPath)

	result := &Result{
		Source:   path,
		Path:     filepath.Join(dir, discovery.CanonicalName),
		Instance: filepath.Base(dir),
	}

	result.SHA1, err = hashFile(absPath)
	if err != nil {
		return nil, issue.WrapWithContext(err, "hash archive", path)
	}

	if result.IndexWritten, err = p.writeIndex(absPath, dir, result); err != nil {
		return nil, err
	}

	if result.IconWritten, err = p.writeIcon(absPath, dir); err != nil {
		return nil, err
	}

	if absPath != result.Path {
		if err := os.Rename(absPath, result.Path); err != nil {
			return nil, issue.WrapWithContext(err, "rename archive to "+discovery.CanonicalName, path)
		}
	}

	return result, nil
}

// writeIndex extracts the index next to the archive and annotates it.
// It returns false when the archive has no index.
func (p *Processor) writeIndex(archivePath, dir string, result *Result) (bool, error) {
	indexPath := filepath.Join(dir, IndexMember)

	found, err := p.extractor.ExtractMember(archivePath, IndexMember, indexPath)
	if err != nil {
		return false, issue.NewErrorContext().
			WithOperation("extract " + IndexMember).
			WithResource(archivePath).
			WithSuggestion("Check that the file is a valid .mrpack (zip) archive").
			Wrap(err).
			BuildError()
	}
	if !found {
		return false, nil
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return false, issue.WrapWithContext(err, "read "+IndexMember, indexPath)
	}

	annotated, err := annotateIndex(data, result.SHA1, result.Instance)
	if err != nil {
		return false, issue.NewErrorContext().
			WithOperation("annotate " + IndexMember).
			WithResource(archivePath).
			WithSuggestion("Re-export the modpack; its index must be a JSON object").
			Wrap(err).
			BuildError()
	}

	if err := writeOutput(indexPath, annotated); err != nil {
		return false, issue.WrapWithContext(err, "write "+IndexMember, indexPath)
	}
	return true, nil
}

// writeIcon extracts the icon next to the archive. It returns false when
// the archive has no icon.
func (p *Processor) writeIcon(archivePath, dir string) (bool, error) {
	iconPath := filepath.Join(dir, IconName)

	found, err := p.extractor.ExtractMember(archivePath, IconMember, iconPath)
	if err != nil {
		return false, issue.WrapWithContext(err, "extract "+IconMember, archivePath)
	}
	if !found {
		return false, nil
	}

	if err := os.Chmod(iconPath, outputMode); err != nil {
		return false, issue.WrapWithContext(err, "set permissions", iconPath)
	}
	return true, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only

	h := sha1.New() //nolint:gosec // fingerprint only
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeOutput replaces path with data and forces outputMode, which
// os.WriteFile alone does not do for a file that already exists.
func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, outputMode); err != nil {
		return err
	}
	return os.Chmod(path, outputMode)
}
