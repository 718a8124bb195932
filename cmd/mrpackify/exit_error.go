// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

const (
	// ExitOK means every discovered archive was processed, or none were found.
	ExitOK ExitCode = 0
	// ExitFailure means configuration loading or archive processing failed.
	ExitFailure ExitCode = 1
)

type (
	// ExitCode is a process exit status.
	ExitCode int

	// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
	ExitError struct {
		Code ExitCode
		Err  error
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
