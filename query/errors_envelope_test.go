package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-content-sync/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestListRunsMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ListRunsMessage{Offset: -1}).Validate()
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

func TestQueries_NilDependenciesReturnRichError(t *testing.T) {
	var courses *ListCoursesQuery
	_, err := courses.Query(context.Background(), ListCoursesMessage{})
	assertInternal(t, err)

	_, err = NewListRunsQuery(nil).Query(context.Background(), ListRunsMessage{})
	assertInternal(t, err)
}

func assertInternal(t *testing.T, err error) {
	t.Helper()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
