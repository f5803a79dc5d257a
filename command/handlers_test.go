package command

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	syncpkg "github.com/goliatone/go-content-sync/sync"
	goerrors "github.com/goliatone/go-errors"
)

type stubImporter struct {
	runFn func(context.Context, syncpkg.ImportRequest) (syncpkg.Report, error)
	calls int
}

func (s *stubImporter) Run(ctx context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error) {
	s.calls++
	return s.runFn(ctx, req)
}

func TestImportCourseCommand_ExecuteDelegatesAndStoresReport(t *testing.T) {
	importer := &stubImporter{
		runFn: func(_ context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error) {
			if req.CourseID != "course-a" || !req.DryRun {
				t.Fatalf("unexpected request %+v", req)
			}
			return syncpkg.Report{CourseID: req.CourseID, DryRun: true, State: syncpkg.StateDone}, nil
		},
	}

	cmd := NewImportCourseCommand(importer)
	collector := gocmd.NewResult[syncpkg.Report]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ImportCourseMessage{Request: syncpkg.ImportRequest{CourseID: "course-a", DryRun: true}})
	if err != nil {
		t.Fatalf("execute import: %v", err)
	}
	report, ok := collector.Load()
	if !ok {
		t.Fatalf("expected report in result collector")
	}
	if report.CourseID != "course-a" || report.State != syncpkg.StateDone {
		t.Fatalf("unexpected stored report %+v", report)
	}
}

func TestImportCourseCommand_FatalRunStillStoresReport(t *testing.T) {
	fatal := core.NewSyncError("course not found", goerrors.CategoryNotFound, core.SyncErrorRootNotFound, nil)
	importer := &stubImporter{
		runFn: func(_ context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error) {
			return syncpkg.Report{CourseID: req.CourseID, State: syncpkg.StateFatal, Error: fatal.Error()}, fatal
		},
	}

	collector := gocmd.NewResult[syncpkg.Report]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewImportCourseCommand(importer).Execute(ctx, ImportCourseMessage{Request: syncpkg.ImportRequest{CourseID: "missing"}})
	if !core.HasCode(err, core.SyncErrorRootNotFound) {
		t.Fatalf("expected root not found error, got %v", err)
	}
	report, ok := collector.Load()
	if !ok || report.State != syncpkg.StateFatal {
		t.Fatalf("expected fatal report to be stored, got %+v", report)
	}
}

func TestImportCourseCommand_InvalidMessageSkipsImporter(t *testing.T) {
	importer := &stubImporter{
		runFn: func(context.Context, syncpkg.ImportRequest) (syncpkg.Report, error) {
			return syncpkg.Report{}, nil
		},
	}
	cmd := NewImportCourseCommand(importer)

	cases := []ImportCourseMessage{
		{Request: syncpkg.ImportRequest{CourseID: "  "}},
		{Request: syncpkg.ImportRequest{CourseID: "course-a", Mode: contract.Mode("PATCH")}},
	}
	for _, msg := range cases {
		if err := cmd.Execute(context.Background(), msg); err == nil {
			t.Fatalf("expected validation error for %+v", msg.Request)
		}
	}
	if importer.calls != 0 {
		t.Fatalf("expected importer not to run, got %d calls", importer.calls)
	}
}

func TestImportCourseCommand_WithoutCollector(t *testing.T) {
	importer := &stubImporter{
		runFn: func(context.Context, syncpkg.ImportRequest) (syncpkg.Report, error) {
			return syncpkg.Report{State: syncpkg.StateDone}, nil
		},
	}
	if err := NewImportCourseCommand(importer).Execute(context.Background(), ImportCourseMessage{
		Request: syncpkg.ImportRequest{CourseID: "course-a"},
	}); err != nil {
		t.Fatalf("execute without collector: %v", err)
	}
}
