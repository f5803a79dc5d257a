package query

import (
	"context"
	"errors"
	"testing"

	sqlstore "github.com/goliatone/go-content-sync/store/sql"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

type stubCourseLister struct {
	listFn func(context.Context) ([]syncpkg.CourseSummary, error)
}

func (s stubCourseLister) ListCourses(ctx context.Context) ([]syncpkg.CourseSummary, error) {
	return s.listFn(ctx)
}

type stubRunReader struct {
	listFn func(context.Context, sqlstore.RunFilter) ([]syncpkg.Report, int, error)
}

func (s stubRunReader) ListRuns(ctx context.Context, filter sqlstore.RunFilter) ([]syncpkg.Report, int, error) {
	return s.listFn(ctx, filter)
}

func TestListCoursesQuery_FiltersImportable(t *testing.T) {
	lister := stubCourseLister{
		listFn: func(context.Context) ([]syncpkg.CourseSummary, error) {
			return []syncpkg.CourseSummary{
				{CourseID: "course-a", Status: "Ready", Importable: true},
				{CourseID: "course-b", Status: "Draft"},
			}, nil
		},
	}
	qry := NewListCoursesQuery(lister)

	all, err := qry.Query(context.Background(), ListCoursesMessage{})
	if err != nil {
		t.Fatalf("list courses: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(all))
	}

	importable, err := qry.Query(context.Background(), ListCoursesMessage{ImportableOnly: true})
	if err != nil {
		t.Fatalf("list importable courses: %v", err)
	}
	if len(importable) != 1 || importable[0].CourseID != "course-a" {
		t.Fatalf("unexpected importable courses: %#v", importable)
	}
}

func TestListCoursesQuery_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	qry := NewListCoursesQuery(stubCourseLister{
		listFn: func(context.Context) ([]syncpkg.CourseSummary, error) { return nil, boom },
	})
	if _, err := qry.Query(context.Background(), ListCoursesMessage{}); !errors.Is(err, boom) {
		t.Fatalf("expected lister error, got %v", err)
	}
}

func TestListRunsQuery_Delegates(t *testing.T) {
	called := false
	reader := stubRunReader{
		listFn: func(_ context.Context, filter sqlstore.RunFilter) ([]syncpkg.Report, int, error) {
			called = true
			if filter.CourseID != "course-a" || filter.Limit != 5 || filter.Offset != 10 {
				t.Fatalf("unexpected filter: %#v", filter)
			}
			return []syncpkg.Report{{RunID: "run-1", CourseID: "course-a"}}, 11, nil
		},
	}

	page, err := NewListRunsQuery(reader).Query(context.Background(), ListRunsMessage{
		CourseID: " course-a ",
		Limit:    5,
		Offset:   10,
	})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if !called {
		t.Fatalf("expected run reader invocation")
	}
	if page.Total != 11 || len(page.Runs) != 1 || page.Runs[0].RunID != "run-1" {
		t.Fatalf("unexpected run page: %#v", page)
	}
}

func TestListRunsQuery_RejectsNegativePaging(t *testing.T) {
	reader := stubRunReader{
		listFn: func(context.Context, sqlstore.RunFilter) ([]syncpkg.Report, int, error) {
			t.Fatalf("reader must not be called")
			return nil, 0, nil
		},
	}
	if _, err := NewListRunsQuery(reader).Query(context.Background(), ListRunsMessage{Limit: -1}); err == nil {
		t.Fatalf("expected validation error")
	}
}
