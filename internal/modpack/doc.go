// SPDX-License-Identifier: MPL-2.0

// Package modpack normalizes .mrpack archives in place.
//
// For one archive the Processor:
//  1. hashes the archive (SHA-1, lowercase hex)
//  2. extracts modrinth.index.json next to it and stamps "sha1" and "id" into it
//  3. extracts overrides/icon.png next to it as icon.png
//  4. renames the archive to instance.mrpack
//
// Missing index or icon members are not errors. Extracted files are made
// 0644. Existing files with the same names are overwritten, which makes
// re-processing an instance idempotent.
//
// The Runner feeds archives from a discovery sequence to the Processor one at
// a time and stops at the first failure. Nothing is rolled back: archives
// processed before the failure stay processed.
package modpack
