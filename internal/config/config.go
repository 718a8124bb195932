// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrpackify/mrpackify/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "mrpackify"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "mrpackify"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes the tool's own environment variables.
	EnvPrefix = "MRPACKIFY"
)

//go:embed config_schema.cue
var configSchema string

// envBindings lists the environment variables read for each key, in
// priority order. The unprefixed names are the ones CI workflows usually
// export for push events.
var envBindings = map[string][]string{
	"modpacks_dir": {EnvPrefix + "_MODPACKS_DIR"},
	"before":       {EnvPrefix + "_BEFORE", "GITHUB_EVENT_BEFORE", "BEFORE_SHA"},
	"after":        {EnvPrefix + "_AFTER", "AFTER_SHA", "GITHUB_SHA"},
	"event":        {EnvPrefix + "_EVENT", "GITHUB_EVENT_NAME"},
	"manual":       {EnvPrefix + "_MANUAL"},
	"verbose":      {EnvPrefix + "_VERBOSE"},
}

// loadWithOptions builds a fresh Viper instance per call so loads never
// share state. It returns the config and the path of the file it read, if any.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("modpacks_dir", defaults.ModpacksDir)
	v.SetDefault("before", defaults.Before)
	v.SetDefault("after", defaults.After)
	v.SetDefault("event", defaults.Event)
	v.SetDefault("manual", defaults.Manual)
	v.SetDefault("verbose", defaults.Verbose)

	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, "", fmt.Errorf("bind environment for %s: %w", key, err)
		}
	}

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the --config path is correct").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else if cuePath := filepath.Join(baseDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		resolvedPath = cuePath
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Allowed fields: modpacks_dir, before, after, event, manual, verbose").
				Wrap(err).
				BuildError()
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Root = baseDir

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper. Concrete(false) is used
// because every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return fmt.Errorf("compile %s: %w", path, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
