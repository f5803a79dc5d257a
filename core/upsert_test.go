package core

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-content-sync/target"
)

func lessonRequest(payload map[string]any) UpsertRequest {
	return UpsertRequest{
		Entity:          "Lesson",
		Collection:      "lessons",
		IdentityField:   "notionPageId",
		Payload:         payload,
		ImmutableFields: []string{"notionPageId"},
	}
}

func newEngine(t *testing.T, store target.Store, opts ...UpsertEngineOption) *UpsertEngine {
	t.Helper()
	engine, err := NewUpsertEngine(store, opts...)
	if err != nil {
		t.Fatalf("new upsert engine: %v", err)
	}
	return engine
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := target.NewMemoryStore()
	engine := newEngine(t, store)
	payload := map[string]any{"notionPageId": "p1", "title": "Lesson", "course": "3"}

	first, err := engine.Upsert(context.Background(), lessonRequest(payload))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Outcome != OutcomeCreated || first.TargetID == "" {
		t.Fatalf("expected create, got %+v", first)
	}
	second, err := engine.Upsert(context.Background(), lessonRequest(payload))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Outcome != OutcomeSkipped || second.TargetID != first.TargetID {
		t.Fatalf("expected skip with same id, got %+v", second)
	}
	if store.Writes() != 1 {
		t.Fatalf("expected exactly one write, got %d", store.Writes())
	}
}

func TestUpsertUpdatesWhenContentChanges(t *testing.T) {
	store := target.NewMemoryStore()
	engine := newEngine(t, store)
	payload := map[string]any{"notionPageId": "p1", "title": "Lesson", "course": "3"}
	created, _ := engine.Upsert(context.Background(), lessonRequest(payload))

	changed := map[string]any{"notionPageId": "p1", "title": "Lesson, revised", "course": "3"}
	updated, err := engine.Upsert(context.Background(), lessonRequest(changed))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Outcome != OutcomeUpdated || updated.TargetID != created.TargetID {
		t.Fatalf("expected update of same record, got %+v", updated)
	}
	if updated.Checksum == created.Checksum {
		t.Fatalf("expected checksum to change")
	}
	page, _ := store.List(context.Background(), "lessons", target.Query{})
	if page.Records[0].Attr("title") != "Lesson, revised" || page.Records[0].Attr(FieldChecksum) != updated.Checksum {
		t.Fatalf("expected full payload with new checksum stored, got %+v", page.Records[0])
	}
}

func TestUpsertForceBypassesSkipButNotLock(t *testing.T) {
	store := target.NewMemoryStore()
	engine := newEngine(t, store)
	payload := map[string]any{"notionPageId": "p1", "title": "Lesson"}
	_, _ = engine.Upsert(context.Background(), lessonRequest(payload))

	req := lessonRequest(payload)
	req.Force = true
	forced, err := engine.Upsert(context.Background(), req)
	if err != nil {
		t.Fatalf("forced upsert: %v", err)
	}
	if forced.Outcome != OutcomeUpdated || store.Writes() != 2 {
		t.Fatalf("expected forced update, got %+v writes=%d", forced, store.Writes())
	}

	locked := lessonRequest(map[string]any{"notionPageId": "p1", "title": "Lesson", FieldSyncLock: true})
	locked.Force = true
	result, err := engine.Upsert(context.Background(), locked)
	if !HasCode(err, SyncErrorLocked) {
		t.Fatalf("expected sync lock error, got %v", err)
	}
	if result.Outcome != OutcomeFailed || store.Writes() != 2 {
		t.Fatalf("expected no write for locked record, got %+v writes=%d", result, store.Writes())
	}
}

func TestUpsertRequiresIdentity(t *testing.T) {
	engine := newEngine(t, target.NewMemoryStore())
	_, err := engine.Upsert(context.Background(), lessonRequest(map[string]any{"title": "Lesson"}))
	if !HasCode(err, SyncErrorMissingIdentity) {
		t.Fatalf("expected missing identity, got %v", err)
	}
}

func TestUpsertDryRunDoesNotWrite(t *testing.T) {
	store := target.NewMemoryStore()
	logger := newRecordingLogger()
	engine := newEngine(t, store, WithUpsertLogger(logger))
	req := lessonRequest(map[string]any{"notionPageId": "p1", "title": "Lesson"})
	req.DryRun = true

	result, err := engine.Upsert(context.Background(), req)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Outcome != OutcomeCreated || !result.DryRun {
		t.Fatalf("expected dry-run create, got %+v", result)
	}
	if result.TargetID != DryRunTargetID("lessons", "p1") || !IsDryRunTargetID(result.TargetID) {
		t.Fatalf("unexpected placeholder id %q", result.TargetID)
	}
	if store.Count("") != 0 {
		t.Fatalf("expected no records after dry run")
	}
	found := false
	for _, msg := range logger.messages("info") {
		if strings.HasPrefix(msg, DryRunMarker+" CREATE lessons") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dry-run marker log, got %v", logger.messages(""))
	}
}

func TestUpsertSurfacesTargetFailure(t *testing.T) {
	store := target.NewMemoryStore().FailWhen(func(op, collection string, _ map[string]any) *target.StatusError {
		return &target.StatusError{Operation: op, Collection: collection, StatusCode: 400, Body: `{"error":"Invalid key"}`}
	})
	engine := newEngine(t, store)
	result, err := engine.Upsert(context.Background(), lessonRequest(map[string]any{"notionPageId": "p1", "title": "x"}))
	if !HasCode(err, SyncErrorUpsertFailed) {
		t.Fatalf("expected upsert failed, got %v", err)
	}
	message := ErrorMessage(err)
	for _, want := range []string{"Lesson", "p1", "Invalid key"} {
		if !strings.Contains(message, want) {
			t.Fatalf("expected %q in %q", want, message)
		}
	}
	if result.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %q", result.Outcome)
	}
}

func TestUpsertRejectsChangingSetOnceField(t *testing.T) {
	store := target.NewMemoryStore()
	engine := newEngine(t, store)
	req := UpsertRequest{
		Entity:          "Course",
		Collection:      "courses",
		IdentityField:   "courseId",
		ImmutableFields: []string{"courseId", "notionPageId"},
		Payload:         map[string]any{"courseId": "course-a", "notionPageId": "page-1", "name": "A"},
	}
	if _, err := engine.Upsert(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	req.Payload = map[string]any{"courseId": "course-a", "notionPageId": "page-2", "name": "A"}
	_, err := engine.Upsert(context.Background(), req)
	if !HasCode(err, SyncErrorImmutableChanged) {
		t.Fatalf("expected immutable change error, got %v", err)
	}
	if store.Updates() != 0 {
		t.Fatalf("expected no update")
	}
}

func TestUpsertRecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	engine := newEngine(t, target.NewMemoryStore(), WithUpsertMetrics(metrics))
	_, _ = engine.Upsert(context.Background(), lessonRequest(map[string]any{"notionPageId": "p1", "title": "x"}))
	if len(metrics.counters) != 1 || metrics.counters[0].name != "contentsync.upsert.total" {
		t.Fatalf("unexpected counters %+v", metrics.counters)
	}
	if metrics.counters[0].tags["outcome"] != string(OutcomeCreated) {
		t.Fatalf("expected outcome tag, got %+v", metrics.counters[0].tags)
	}
}

func TestNewUpsertEngineRequiresStore(t *testing.T) {
	if _, err := NewUpsertEngine(nil); err == nil {
		t.Fatalf("expected store error")
	}
}
