package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-content-sync/source"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type WriteBackReporterOption func(*WriteBackReporter)

func WithWriteBackLogger(logger Logger) WriteBackReporterOption {
	return func(r *WriteBackReporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithWriteBackMetrics(recorder MetricsRecorder) WriteBackReporterOption {
	return func(r *WriteBackReporter) {
		if recorder != nil {
			r.metrics = recorder
		}
	}
}

// WriteBackResult lists which status properties were written and which were
// skipped because the source record does not define them.
type WriteBackResult struct {
	Applied []string
	Skipped []string
	DryRun  bool
}

// WriteBackReporter pushes sync status onto source records.
type WriteBackReporter struct {
	client  source.Client
	logger  Logger
	metrics MetricsRecorder
}

func NewWriteBackReporter(client source.Client, opts ...WriteBackReporterOption) (*WriteBackReporter, error) {
	if client == nil {
		return nil, fmt.Errorf("core: source client is required")
	}
	reporter := &WriteBackReporter{
		client:  client,
		logger:  glog.Nop(),
		metrics: NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reporter)
		}
	}
	return reporter, nil
}

// Report writes status onto the source record. Properties missing from the
// record, or of a kind that cannot be written, are logged and skipped. In dry
// run nothing is read or written.
func (r *WriteBackReporter) Report(ctx context.Context, sourceID string, status WriteBackStatus, dryRun bool) (WriteBackResult, error) {
	startedAt := time.Now()
	fields := status.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	outcome := "success"
	if status.Failed() {
		outcome = "error"
	}
	defer observeOperation(ctx, r.metrics, startedAt, "write_back", map[string]string{"status": outcome})

	if dryRun {
		LogFields(ctx, r.logger, "info", DryRunMarker+" write-back skipped", map[string]any{
			"source_id": sourceID, "status": outcome, "fields": names,
		})
		return WriteBackResult{Skipped: names, DryRun: true}, nil
	}

	record, err := r.client.GetRecord(ctx, sourceID)
	if err != nil {
		return WriteBackResult{}, writeBackFailed(err, sourceID)
	}

	result := WriteBackResult{}
	patch := make(source.Properties, len(fields))
	for _, name := range names {
		existing, ok := record.Properties[name]
		if !ok || existing == nil {
			LogFields(ctx, r.logger, "warn", "source property not found, skipping write-back field", map[string]any{
				"source_id": sourceID, "property": name,
			})
			result.Skipped = append(result.Skipped, name)
			continue
		}
		encoded, ok := source.EncodeValue(existing, fields[name])
		if !ok {
			LogFields(ctx, r.logger, "warn", "source property is not writable, skipping write-back field", map[string]any{
				"source_id": sourceID, "property": name, "kind": string(existing.Kind()),
			})
			result.Skipped = append(result.Skipped, name)
			continue
		}
		patch[name] = encoded
		result.Applied = append(result.Applied, name)
	}
	if len(patch) == 0 {
		return result, nil
	}
	if err := r.client.PatchRecord(ctx, record.ID, patch); err != nil {
		return WriteBackResult{Skipped: names}, writeBackFailed(err, sourceID)
	}
	return result, nil
}

func writeBackFailed(err error, sourceID string) error {
	return WrapSyncError(
		err,
		goerrors.CategoryExternal,
		SyncErrorWriteBackFailed,
		fmt.Sprintf("write-back failed for %s", sourceID),
		map[string]any{"source_id": sourceID},
	)
}
