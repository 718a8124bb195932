// SPDX-License-Identifier: MPL-2.0

// Package archive pulls single members out of zip-compatible archives such
// as .mrpack files.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// memberMode is the permission used when a destination file is created.
const memberMode = 0o644

type (
	// Extractor copies one named member of an archive to a destination path.
	// It reports false, with no error, when the archive has no such member.
	Extractor interface {
		ExtractMember(archivePath, member, destPath string) (bool, error)
	}

	// ZipExtractor implements Extractor for zip archives.
	ZipExtractor struct{}
)

// NewZipExtractor creates a zip extractor.
func NewZipExtractor() *ZipExtractor {
	return &ZipExtractor{}
}

// ExtractMember writes the member named member (a slash path inside the
// archive) to destPath, replacing any existing file. Directory entries never
// match.
func (e *ZipExtractor) ExtractMember(archivePath, member, destPath string) (found bool, err error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return false, fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	file := findMember(reader.File, member)
	if file == nil {
		return false, nil
	}

	if err := copyMember(file, destPath); err != nil {
		return false, err
	}
	return true, nil
}

func findMember(files []*zip.File, member string) *zip.File {
	for _, file := range files {
		if file.Name == member && !file.FileInfo().IsDir() {
			return file
		}
	}
	return nil
}

func copyMember(file *zip.File, destPath string) (err error) {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", file.Name, err)
	}
	defer func() { _ = src.Close() }() // read-only; close errors carry no data loss

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, memberMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", destPath, closeErr)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}
