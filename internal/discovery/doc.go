// SPDX-License-Identifier: MPL-2.0

// Package discovery finds the .mrpack archives a run should process.
//
// Two strategies feed the same lazy sequence type:
//   - Manual: walk the modpacks directory and yield every archive that has
//     not been renamed to instance.mrpack yet.
//   - Changed: ask a vcs.Differ which files a revision range added or
//     modified, and yield the archives among them that still exist.
//
// Both return iter.Seq values that do their I/O only while being ranged
// over. A sequence is finite and meant to be consumed once.
package discovery
