package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-content-sync/core"
	syncpkg "github.com/goliatone/go-content-sync/sync"
	goerrors "github.com/goliatone/go-errors"
)

func TestImportCourseMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ImportCourseMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.SyncErrorInvalidRequest {
		t.Fatalf("expected %q text code, got %q", core.SyncErrorInvalidRequest, rich.TextCode)
	}
}

func TestImportCourseCommand_NilImporterReturnsRichError(t *testing.T) {
	var cmd *ImportCourseCommand
	err := cmd.Execute(context.Background(), ImportCourseMessage{Request: syncpkg.ImportRequest{CourseID: "c"}})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.SyncErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.SyncErrorInternal, rich.TextCode)
	}
}
