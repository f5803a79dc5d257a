package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	syncpkg "github.com/goliatone/go-content-sync/sync"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultRunListLimit = 20

// RunFilter narrows ledger listings. Zero values match everything.
type RunFilter struct {
	CourseID string
	Limit    int
	Offset   int
}

// RunStore is the run ledger: one row per finished import with the full
// report kept as JSON.
type RunStore struct {
	db   *bun.DB
	repo repository.Repository[*syncRunRecord]
}

func NewRunStore(db *bun.DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncRunRecord](db, syncRunHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid run repository wiring: %w", err)
		}
	}
	return &RunStore{db: db, repo: repo}, nil
}

func (s *RunStore) RecordRun(ctx context.Context, report syncpkg.Report) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: run store is not configured")
	}
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("sqlstore: encode run report: %w", err)
	}
	totals := report.Totals()
	record := &syncRunRecord{
		ID:           strings.TrimSpace(report.RunID),
		CourseID:     report.CourseID,
		CoursePageID: report.CoursePageID,
		State:        string(report.State),
		Mode:         string(report.Mode),
		DryRun:       report.DryRun,
		Force:        report.Force,
		Gated:        report.Gated,
		CreatedCount: totals.Created,
		UpdatedCount: totals.Updated,
		SkippedCount: totals.Skipped,
		FailedCount:  totals.Failed,
		Error:        report.Error,
		Report:       string(encoded),
		StartedAt:    report.StartedAt.UTC(),
		FinishedAt:   report.FinishedAt.UTC(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err = s.repo.Create(ctx, record)
	return err
}

// ListRuns returns recorded runs, most recent first.
func (s *RunStore) ListRuns(ctx context.Context, filter RunFilter) ([]syncpkg.Report, int, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("sqlstore: run store is not configured")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	selectors := []repository.SelectCriteria{
		repository.OrderBy("started_at DESC"),
		repository.SelectPaginate(limit, offset),
	}
	if courseID := strings.TrimSpace(filter.CourseID); courseID != "" {
		selectors = append(selectors, repository.SelectBy("course_id", "=", courseID))
	}
	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]syncpkg.Report, 0, len(records))
	for _, record := range records {
		report, err := record.toReport()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, report)
	}
	return out, total, nil
}

func (r *syncRunRecord) toReport() (syncpkg.Report, error) {
	var report syncpkg.Report
	if len(r.Report) > 0 {
		if err := json.Unmarshal([]byte(r.Report), &report); err != nil {
			return syncpkg.Report{}, fmt.Errorf("sqlstore: decode run %s: %w", r.ID, err)
		}
	}
	if report.RunID == "" {
		report.RunID = r.ID
		report.CourseID = r.CourseID
		report.State = syncpkg.State(r.State)
		report.Error = r.Error
		report.StartedAt = r.StartedAt
		report.FinishedAt = r.FinishedAt
	}
	return report, nil
}

var _ syncpkg.RunRecorder = (*RunStore)(nil)
