package errors

import (
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad name").Build(), 2},
		{"conflict", DuplicateNameConflict("app.css", "").Build(), 3},
		{"not found", NotFoundError("asset app.css").Build(), 4},
		{"config", ConfigError("missing build directory").Build(), 7},
		{"build", BuildError("unreadable source").Build(), 11},
		{"filesystem", FileSystemError("unwritable").Build(), 11},
		{"internal", InternalError("bug").Build(), 10},
		{"unclassified", stderrors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	internal := InternalError("invariant broken").Build()
	if got := quiet.FormatError(internal); !strings.Contains(got, "use -v") {
		t.Errorf("expected internal errors to be hidden without -v, got %q", got)
	}
	if got := verbose.FormatError(internal); !strings.Contains(got, "invariant broken") {
		t.Errorf("expected verbose output to include the message, got %q", got)
	}

	validation := ValidationError("asset name is empty").Build()
	if got := quiet.FormatError(validation); !strings.Contains(got, "asset name is empty") {
		t.Errorf("expected validation message to be shown, got %q", got)
	}
	if got := quiet.FormatError(stderrors.New("plain")); got != "Error: plain" {
		t.Errorf("unexpected fallback format %q", got)
	}
}
