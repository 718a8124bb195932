// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultModpacksDir is the repository subdirectory holding instances.
	DefaultModpacksDir = "modpacks"
	// DefaultBefore is the revision diffed from when none is configured.
	DefaultBefore = "HEAD~1"
	// DefaultAfter is the revision diffed to when none is configured.
	DefaultAfter = "HEAD"
	// EventWorkflowDispatch is the trigger event of a manually started CI run.
	EventWorkflowDispatch = "workflow_dispatch"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the resolved run configuration. It is built once at startup
	// and passed to discovery and the runner.
	Config struct {
		// Root holds the modpacks directory. Set from LoadOptions.BaseDir.
		Root string `mapstructure:"-"`
		// ModpacksDir is relative to Root.
		ModpacksDir string `mapstructure:"modpacks_dir"`
		// Before is the revision incremental mode diffs from.
		Before string `mapstructure:"before"`
		// After is the revision incremental mode diffs to.
		After string `mapstructure:"after"`
		// Event is the CI trigger event name, if any.
		Event string `mapstructure:"event"`
		// Manual forces a full scan.
		Manual bool `mapstructure:"manual"`
		// Verbose enables debug logging.
		Verbose bool `mapstructure:"verbose"`
	}

	// InvalidConfigError lists every field that failed validation.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		ModpacksDir: DefaultModpacksDir,
		Before:      DefaultBefore,
		After:       DefaultAfter,
	}
}

// ManualMode reports whether the run should scan every archive instead of
// diffing two revisions.
func (c *Config) ManualMode() bool {
	return c.Manual || c.Event == EventWorkflowDispatch
}

// ModpacksRoot returns the directory manual discovery walks.
func (c *Config) ModpacksRoot() string {
	return filepath.Join(c.Root, c.ModpacksDir)
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root: must not be empty"))
	}
	switch {
	case strings.TrimSpace(c.ModpacksDir) == "":
		errs = append(errs, errors.New("modpacks_dir: must not be empty"))
	case !filepath.IsLocal(c.ModpacksDir):
		errs = append(errs, fmt.Errorf("modpacks_dir: %q must be a relative path inside the repository", c.ModpacksDir))
	}
	if strings.TrimSpace(c.Before) == "" {
		errs = append(errs, errors.New("before: must not be empty"))
	}
	if strings.TrimSpace(c.After) == "" {
		errs = append(errs, errors.New("after: must not be empty"))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
