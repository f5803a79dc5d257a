package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type contentRecord struct {
	bun.BaseModel `bun:"table:content_records,alias:cr"`

	ID         string         `bun:"id,pk"`
	Collection string         `bun:"collection,notnull"`
	SourceID   string         `bun:"source_id,notnull"`
	Checksum   string         `bun:"checksum,notnull"`
	Attributes map[string]any `bun:"attributes,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncRunRecord struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID           string    `bun:"id,pk"`
	CourseID     string    `bun:"course_id,notnull"`
	CoursePageID string    `bun:"course_page_id,notnull"`
	State        string    `bun:"state,notnull"`
	Mode         string    `bun:"mode,notnull"`
	DryRun       bool      `bun:"dry_run,notnull"`
	Force        bool      `bun:"force,notnull"`
	Gated        bool      `bun:"gated,notnull"`
	CreatedCount int       `bun:"created_count,notnull"`
	UpdatedCount int       `bun:"updated_count,notnull"`
	SkippedCount int       `bun:"skipped_count,notnull"`
	FailedCount  int       `bun:"failed_count,notnull"`
	Error        string    `bun:"error,notnull"`
	Report       string    `bun:"report,notnull"`
	StartedAt    time.Time `bun:"started_at,notnull"`
	FinishedAt   time.Time `bun:"finished_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
