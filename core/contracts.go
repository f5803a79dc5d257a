package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Outcome is the result of one upsert. Skipped is an expected path, not an
// error.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

func (o Outcome) IsWrite() bool {
	return o == OutcomeCreated || o == OutcomeUpdated
}

type UpsertRequest struct {
	Entity        string
	Collection    string
	IdentityField string
	Payload       map[string]any
	// ImmutableFields may be set once; an update cannot change a stored value.
	ImmutableFields []string
	Label           string
	Force           bool
	DryRun          bool
}

type UpsertResult struct {
	Outcome  Outcome
	TargetID string
	Identity string
	Checksum string
	DryRun   bool
}

// WriteBackStatus is the sync outcome reported onto a source record. A
// non-empty Error reports a failure and suppresses the success fields.
type WriteBackStatus struct {
	TargetID string
	Checksum string
	SyncedAt time.Time
	Status   string
	Error    string
}

func (s WriteBackStatus) Failed() bool {
	return s.Error != ""
}

// Write-back property names on source records.
const (
	FieldTargetID   = "strapiEntryId"
	FieldChecksum   = "checksum"
	FieldSynced     = "syncedToStrapi"
	FieldSyncErrors = "syncErrors"
	FieldSyncedAt   = "lastSyncedAt"
	FieldStatus     = "status"
	FieldSyncLock   = "syncLock"
)

// Fields returns the property values to write, keyed by property name.
func (s WriteBackStatus) Fields() map[string]any {
	if s.Failed() {
		return map[string]any{FieldSyncErrors: s.Error}
	}
	fields := map[string]any{
		FieldSynced:     true,
		FieldSyncErrors: "",
	}
	if s.TargetID != "" {
		fields[FieldTargetID] = s.TargetID
	}
	if s.Checksum != "" {
		fields[FieldChecksum] = s.Checksum
	}
	if !s.SyncedAt.IsZero() {
		fields[FieldSyncedAt] = s.SyncedAt.UTC().Format(time.RFC3339)
	}
	if s.Status != "" {
		fields[FieldStatus] = s.Status
	}
	return fields
}
