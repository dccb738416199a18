package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aebs/aebs/internal/builderr"
)

// TestExitCodeConstants verifies all exit code constants have expected values
func TestExitCodeConstants(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"InvalidArgs", InvalidArgs, 2},
		{"PreconditionFailed", PreconditionFailed, 3},
		{"NetworkError", NetworkError, 4},
		{"FilesystemError", FilesystemError, 5},
		{"ValidationError", ValidationError, 6},
		{"Canceled", Canceled, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf(InvalidArgs, "unknown platform %q", "beos")
	if err.Code != InvalidArgs {
		t.Errorf("Code = %d, want %d", err.Code, InvalidArgs)
	}
	if err.Error() != `unknown platform "beos"` {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

// TestWrapError tests WrapError constructor
func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")

	tests := []struct {
		name      string
		cause     error
		wantError string
	}{
		{"wrap standard error", baseErr, "build failed: base error"},
		{"wrap formatted error", fmt.Errorf("io error"), "build failed: io error"},
		{"wrap nil error", nil, "build failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapError(FilesystemError, "build failed", tt.cause)
			if err.Error() != tt.wantError {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantError)
			}
			if err.Unwrap() != tt.cause {
				t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), tt.cause)
			}
		})
	}
}

func TestCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"plain", errors.New("boom"), GeneralError},
		{"explicit code", PreconditionErrorf("no %s", "project"), PreconditionFailed},
		{"explicit code wrapped", fmt.Errorf("cmd: %w", InvalidArgsErrorf("bad")), InvalidArgs},
		{"canceled", fmt.Errorf("download: %w", context.Canceled), Canceled},
		{"catalog", builderr.New(builderr.ErrCatalogFetch, "fetch releases", nil), NetworkError},
		{"download", builderr.WithURL(builderr.ErrDownload, "download", "https://x", nil), NetworkError},
		{"redirects", builderr.New(builderr.ErrTooManyRedirects, "download", nil), NetworkError},
		{"missing prerequisite", builderr.New(builderr.ErrMissingPrerequisite, "load", nil), PreconditionFailed},
		{"missing dependency", builderr.New(builderr.ErrMissingDependency, "bundle", nil), PreconditionFailed},
		{"no space", builderr.New(builderr.ErrDestinationUnavailable, "space", nil), PreconditionFailed},
		{"extraction", builderr.New(builderr.ErrExtraction, "extract", nil), ValidationError},
		{"icon", builderr.New(builderr.ErrIconConversion, "icon", nil), ValidationError},
		{"bundling", builderr.New(builderr.ErrBundling, "seal", nil), FilesystemError},
		{"rename", builderr.New(builderr.ErrRename, "rename", nil), FilesystemError},
		{"metadata", builderr.New(builderr.ErrMetadata, "plist", nil), FilesystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeForError(tt.err); got != tt.want {
				t.Errorf("CodeForError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeForError_ExplicitWinsOverKind(t *testing.T) {
	err := WrapError(InvalidArgs, "bad tag", builderr.New(builderr.ErrMissingPrerequisite, "resolve", nil))
	if got := CodeForError(err); got != InvalidArgs {
		t.Errorf("CodeForError() = %d, want %d", got, InvalidArgs)
	}
}
