package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "invalid input carries its own message",
			err:         invalid("add column", CodeRequired, "Criteria name required"),
			wantCode:    "VAL001",
			wantMessage: "Criteria name required",
		},
		{
			name:        "invalid number code",
			err:         invalid("normalize value", CodeInvalidNumber, "Invalid number: x"),
			wantCode:    "VAL002",
			wantMessage: "Invalid number: x",
		},
		{
			name:        "not found",
			err:         notFound("delete row", "Row not found"),
			wantCode:    "NF001",
			wantMessage: "Row not found",
		},
		{
			name:        "duplicate name",
			err:         duplicate("add row", "Formula already exists"),
			wantCode:    "DUP001",
			wantMessage: "Formula already exists",
		},
		{
			name:        "wrapped duplicate keeps its message",
			err:         fmt.Errorf("handler: %w", duplicate("add row", "Formula already exists")),
			wantCode:    "DUP001",
			wantMessage: "Formula already exists",
		},
		{
			name:        "bare kind falls back to generic text",
			err:         ErrNotFound,
			wantCode:    "NF001",
			wantMessage: "Not found",
		},
		{
			name:        "store unique violation classified as duplicate",
			err:         classify("import", store.ErrUnique),
			wantCode:    "DUP001",
			wantMessage: "Name already exists",
		},
		{
			name:        "connection refused",
			err:         internal("add row", errors.New("dial tcp: connection refused")),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "statement timeout",
			err:         classify("render table", store.ErrTimeout),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "deadline exceeded",
			err:         internal("import", context.DeadlineExceeded),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "too many imports",
			err:         internal("import", ErrTooManyImports),
			wantCode:    "IMP001",
			wantMessage: "Another import is in progress",
		},
		{
			name:        "unknown internal error falls back",
			err:         internal("add row", errors.New("pq: relation \"formula\" does not exist")),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_HidesInternalDetail(t *testing.T) {
	err := internal("add row", errors.New("secret table layout"))
	msg := MapError(err)
	if strings.Contains(msg.Message, "secret") || strings.Contains(msg.Action, "secret") {
		t.Errorf("MapError() leaked internal detail: %+v", msg)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(notFound("delete row", "Row not found"))
	want := "Row not found (Code: NF001). Reload the table; it may have been changed elsewhere"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if !IsUserFacing(invalid("x", "", "bad")) {
		t.Error("IsUserFacing(invalid) = false")
	}
	if IsUserFacing(internal("x", errors.New("boom"))) {
		t.Error("IsUserFacing(unknown internal) = true")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"invalid", invalid("op", "", "m"), ErrInvalidInput},
		{"not found", notFound("op", "m"), ErrNotFound},
		{"duplicate", duplicate("op", "m"), ErrDuplicateName},
		{"internal", internal("op", errors.New("x")), ErrInternal},
		{"unclassified", errors.New("x"), ErrInternal},
		{"store no rows", classify("op", store.ErrNoRows), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(classify("op", store.ErrTimeout)) {
		t.Error("statement timeout should be transient")
	}
	if !IsTransient(internal("import", ErrTooManyImports)) {
		t.Error("full import queue should be transient")
	}
	if IsTransient(notFound("op", "m")) {
		t.Error("not found should not be transient")
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: ErrInternal, Op: "delete row", Err: errors.New("boom")}
	if got, want := err.Error(), "delete row: internal failure: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInternal) {
		t.Error("errors.Is(err, ErrInternal) = false")
	}
}
