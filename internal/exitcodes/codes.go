package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aebs/aebs/internal/builderr"
)

// Standard exit codes for aebs
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., missing package.json, uninstalled dependencies, no disk space)
	PreconditionFailed = 3

	// NetworkError indicates the catalog or a download could not be reached
	NetworkError = 4

	// FilesystemError indicates staging, sealing or rebranding failed on disk
	FilesystemError = 5

	// ValidationError indicates corrupt input
	// (e.g., unreadable archive, undecodable icon)
	ValidationError = 6

	// Canceled indicates the run was interrupted (128 + SIGINT)
	Canceled = 130
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// CodeForError returns the exit code for err. An explicit ErrorWithCode
// anywhere in the chain wins; otherwise the pipeline failure kind decides.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, builderr.ErrCatalogFetch),
		errors.Is(err, builderr.ErrDownload):
		return NetworkError
	case errors.Is(err, builderr.ErrMissingPrerequisite),
		errors.Is(err, builderr.ErrMissingDependency),
		errors.Is(err, builderr.ErrDestinationUnavailable):
		return PreconditionFailed
	case errors.Is(err, builderr.ErrExtraction),
		errors.Is(err, builderr.ErrIconConversion):
		return ValidationError
	case errors.Is(err, builderr.ErrBundling),
		errors.Is(err, builderr.ErrRename),
		errors.Is(err, builderr.ErrMetadata):
		return FilesystemError
	}
	return GeneralError
}
