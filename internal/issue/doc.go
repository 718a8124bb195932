// SPDX-License-Identifier: MPL-2.0

// Package issue provides errors that carry the failed operation, the file it
// concerned and hints for fixing it, so CI logs explain what broke.
package issue
