package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/target"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const DryRunMarker = "[DRY RUN]"

type UpsertEngineOption func(*UpsertEngine)

func WithUpsertLogger(logger Logger) UpsertEngineOption {
	return func(e *UpsertEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithUpsertMetrics(recorder MetricsRecorder) UpsertEngineOption {
	return func(e *UpsertEngine) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// UpsertEngine decides create, update or skip for one payload and performs
// the write. Unchanged content never produces a write.
type UpsertEngine struct {
	store    target.Store
	resolver *IdentityResolver
	logger   Logger
	metrics  MetricsRecorder
}

func NewUpsertEngine(store target.Store, opts ...UpsertEngineOption) (*UpsertEngine, error) {
	resolver, err := NewIdentityResolver(store)
	if err != nil {
		return nil, err
	}
	engine := &UpsertEngine{
		store:    store,
		resolver: resolver,
		logger:   glog.Nop(),
		metrics:  NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine, nil
}

func (e *UpsertEngine) Upsert(ctx context.Context, req UpsertRequest) (result UpsertResult, err error) {
	startedAt := time.Now()
	result = UpsertResult{Outcome: OutcomeFailed, DryRun: req.DryRun}
	defer func() {
		observeOperation(ctx, e.metrics, startedAt, "upsert", map[string]string{
			"entity":  req.Entity,
			"outcome": string(result.Outcome),
		})
	}()

	if e == nil || e.store == nil {
		return result, fmt.Errorf("core: upsert engine is not configured")
	}
	meta := map[string]any{"entity": req.Entity, "collection": req.Collection}

	// The lock is owned by the source and checked before anything else,
	// force included.
	if locked, _ := req.Payload[FieldSyncLock].(bool); locked {
		meta["identity"] = fmt.Sprint(req.Payload[req.IdentityField])
		return result, NewSyncError(
			fmt.Sprintf("syncLock enabled for %s:%v", req.Entity, req.Payload[req.IdentityField]),
			goerrors.CategoryConflict,
			SyncErrorLocked,
			meta,
		)
	}

	identity := identityValue(req.Payload[req.IdentityField])
	if identity == "" {
		meta["field"] = req.IdentityField
		return result, NewSyncError(
			fmt.Sprintf("Missing identity field %q on %s", req.IdentityField, req.Entity),
			goerrors.CategoryValidation,
			SyncErrorMissingIdentity,
			meta,
		)
	}
	result.Identity = identity
	meta["identity"] = identity

	payload, checksum := WithChecksum(req.Payload)
	result.Checksum = checksum

	existing, found, err := e.resolver.ResolveExisting(ctx, req.Collection, req.IdentityField, identity)
	if err != nil {
		return result, upsertFailed(err, req.Entity, identity, meta)
	}

	if found && !req.Force && existing.Attr(FieldChecksum) == checksum {
		result.Outcome = OutcomeSkipped
		result.TargetID = existing.ID
		LogFields(ctx, e.logger, "debug", "content unchanged, skipping write", map[string]any{
			"entity": req.Entity, "identity": identity, "target_id": existing.ID,
		})
		return result, nil
	}

	if found {
		if err := checkSetOnce(req, existing, payload, meta); err != nil {
			return result, err
		}
	}

	action, outcome := "CREATE", OutcomeCreated
	if found {
		action, outcome = "UPDATE", OutcomeUpdated
	}

	if req.DryRun {
		result.Outcome = outcome
		result.TargetID = existing.ID
		if !found {
			result.TargetID = DryRunTargetID(req.Collection, identity)
		}
		LogFields(ctx, e.logger, "info", fmt.Sprintf("%s %s %s %s", DryRunMarker, action, req.Collection, labelOf(req, identity)), map[string]any{
			"entity": req.Entity, "identity": identity, "checksum": checksum,
		})
		return result, nil
	}

	var written target.Record
	if found {
		written, err = e.store.Update(ctx, req.Collection, existing.ID, payload)
	} else {
		written, err = e.store.Create(ctx, req.Collection, payload)
	}
	if err != nil {
		return result, upsertFailed(err, req.Entity, identity, meta)
	}
	if strings.TrimSpace(written.ID) == "" {
		written.ID = existing.ID
	}
	if strings.TrimSpace(written.ID) == "" {
		return result, upsertFailed(fmt.Errorf("target returned no id"), req.Entity, identity, meta)
	}

	result.Outcome = outcome
	result.TargetID = written.ID
	LogFields(ctx, e.logger, "info", fmt.Sprintf("%s %s", strings.ToLower(action), req.Collection), map[string]any{
		"entity": req.Entity, "identity": identity, "target_id": written.ID, "label": labelOf(req, identity),
	})
	return result, nil
}

// DryRunTargetID is the placeholder id handed to dependents of a record that
// a dry run would have created.
func DryRunTargetID(collection string, identity string) string {
	return "dry-run:" + collection + ":" + identity
}

func IsDryRunTargetID(id string) bool {
	return strings.HasPrefix(id, "dry-run:")
}

// checkSetOnce rejects an update that would change an immutable field that
// already holds a value in the target.
func checkSetOnce(req UpsertRequest, existing target.Record, payload map[string]any, meta map[string]any) error {
	for _, field := range req.ImmutableFields {
		stored := existing.Attr(field)
		if stored == "" {
			continue
		}
		incoming, ok := payload[field]
		if !ok || incoming == nil {
			continue
		}
		if fmt.Sprint(incoming) == stored {
			continue
		}
		fieldMeta := cloneFields(meta)
		fieldMeta["field"] = field
		return NewSyncError(
			fmt.Sprintf("Immutable field %q on %s cannot change from %q to %q", field, req.Entity, stored, fmt.Sprint(incoming)),
			goerrors.CategoryConflict,
			SyncErrorImmutableChanged,
			fieldMeta,
		)
	}
	return nil
}

func upsertFailed(err error, entity string, identity string, meta map[string]any) error {
	fields := cloneFields(meta)
	var statusErr *target.StatusError
	if errors.As(err, &statusErr) {
		fields["status_code"] = statusErr.StatusCode
		fields["body"] = statusErr.Body
		return NewSyncError(
			fmt.Sprintf("%s upsert failed for %q (status %d): %s", entity, identity, statusErr.StatusCode, statusErr.Body),
			goerrors.CategoryExternal,
			SyncErrorUpsertFailed,
			fields,
		)
	}
	return WrapSyncError(err, goerrors.CategoryExternal, SyncErrorUpsertFailed, fmt.Sprintf("%s upsert failed for %q", entity, identity), fields)
}

func identityValue(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func labelOf(req UpsertRequest, identity string) string {
	if strings.TrimSpace(req.Label) != "" {
		return req.Label
	}
	for _, field := range []string{"name", "title", "phaseName"} {
		if text, ok := req.Payload[field].(string); ok && text != "" {
			return text
		}
	}
	return identity
}
