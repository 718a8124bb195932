// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the mrpackify command line.
//
// There is a single root command. It loads the configuration, picks manual
// or incremental discovery, processes each archive in turn and maps the
// outcome to the exit status: 0 on success or when there was nothing to do,
// 1 when loading the configuration or processing an archive failed.
package cmd
