package query

import (
	"context"
	"strings"

	sqlstore "github.com/goliatone/go-content-sync/store/sql"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

type CourseLister interface {
	ListCourses(ctx context.Context) ([]syncpkg.CourseSummary, error)
}

type RunReader interface {
	ListRuns(ctx context.Context, filter sqlstore.RunFilter) ([]syncpkg.Report, int, error)
}

// RunPage is one page of the run ledger, most recent run first.
type RunPage struct {
	Runs  []syncpkg.Report
	Total int
}

type ListCoursesQuery struct {
	lister CourseLister
}

func NewListCoursesQuery(lister CourseLister) *ListCoursesQuery {
	return &ListCoursesQuery{lister: lister}
}

func (q *ListCoursesQuery) Query(ctx context.Context, msg ListCoursesMessage) ([]syncpkg.CourseSummary, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: course lister is required")
	}
	courses, err := q.lister.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if !msg.ImportableOnly {
		return courses, nil
	}
	out := make([]syncpkg.CourseSummary, 0, len(courses))
	for _, course := range courses {
		if course.Importable {
			out = append(out, course)
		}
	}
	return out, nil
}

type ListRunsQuery struct {
	reader RunReader
}

func NewListRunsQuery(reader RunReader) *ListRunsQuery {
	return &ListRunsQuery{reader: reader}
}

func (q *ListRunsQuery) Query(ctx context.Context, msg ListRunsMessage) (RunPage, error) {
	if q == nil || q.reader == nil {
		return RunPage{}, queryDependencyError("query: run ledger is not configured")
	}
	if err := msg.Validate(); err != nil {
		return RunPage{}, queryWrapValidation(err, "query: invalid list runs message")
	}
	runs, total, err := q.reader.ListRuns(ctx, sqlstore.RunFilter{
		CourseID: strings.TrimSpace(msg.CourseID),
		Limit:    msg.Limit,
		Offset:   msg.Offset,
	})
	if err != nil {
		return RunPage{}, err
	}
	return RunPage{Runs: runs, Total: total}, nil
}
