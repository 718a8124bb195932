// SPDX-License-Identifier: MPL-2.0

// Package config builds the run configuration using Viper with CUE as the
// optional file format.
//
// Values are resolved in this order, highest first: explicit overrides (CLI
// flags), environment variables, the mrpackify.cue file at the repository
// root (or the file named with --config), and built-in defaults. The file is
// validated against the embedded config_schema.cue before it is merged.
package config
