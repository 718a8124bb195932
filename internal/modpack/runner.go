// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"context"
	"iter"
	"log/slog"

	"github.com/mrpackify/mrpackify/internal/config"
)

type (
	// Source produces archive paths. *discovery.Discovery implements it.
	Source interface {
		Manual() iter.Seq[string]
		Changed(ctx context.Context, before, after string) iter.Seq[string]
	}

	// ArchiveProcessor processes one archive. *Processor implements it.
	ArchiveProcessor interface {
		Process(ctx context.Context, path string) (*Result, error)
	}

	// Runner drives one run: pick a discovery mode, then process each
	// discovered archive in order.
	Runner struct {
		cfg       *config.Config
		source    Source
		processor ArchiveProcessor
		logger    *slog.Logger
	}

	// Summary counts what a run did.
	Summary struct {
		// Results holds one entry per archive that was processed, in order.
		Results []*Result
		// Skipped counts archives that vanished before processing.
		Skipped int
	}
)

// NewRunner creates a Runner. A nil logger means slog.Default().
func NewRunner(cfg *config.Config, source Source, processor ArchiveProcessor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		source:    source,
		processor: processor,
		logger:    logger,
	}
}

// Run processes every discovered archive. It returns the first processing
// error together with the summary of what completed before it.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	for path := range r.discover(ctx) {
		result, err := r.processor.Process(ctx, path)
		if err != nil {
			return summary, err
		}
		if result.Skipped {
			summary.Skipped++
			continue
		}
		summary.Results = append(summary.Results, result)
	}

	if summary.Total() == 0 {
		r.logger.Info("no modpacks to process")
	}
	return summary, nil
}

func (r *Runner) discover(ctx context.Context) iter.Seq[string] {
	if r.cfg.ManualMode() {
		r.logger.Info("scanning all modpacks", "dir", r.cfg.ModpacksRoot())
		return r.source.Manual()
	}

	r.logger.Info("checking changed modpacks", "before", r.cfg.Before, "after", r.cfg.After)
	return r.source.Changed(ctx, r.cfg.Before, r.cfg.After)
}

// Processed returns the number of archives processed successfully.
func (s *Summary) Processed() int {
	return len(s.Results)
}

// Total returns the number of archives discovered and handled.
func (s *Summary) Total() int {
	return len(s.Results) + s.Skipped
}
