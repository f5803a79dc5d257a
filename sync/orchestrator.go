package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	"github.com/goliatone/go-content-sync/source"
	"github.com/goliatone/go-content-sync/transform"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	EntityPhase      = "Phase"
	EntityCourse     = "Course"
	EntityLesson     = "Lesson"
	EntityAssignment = "Assignment"
	EntityResource   = "Resource"

	// SourceStatusSynced is written to the root record after a successful run.
	SourceStatusSynced = "Synced"

	parentRelationField = "phase"
	courseRelationField = "course"
)

var importOrder = []string{EntityPhase, EntityCourse, EntityLesson, EntityAssignment, EntityResource}

// RunRecorder persists finished run reports.
type RunRecorder interface {
	RecordRun(ctx context.Context, report Report) error
}

// Dependencies are the collaborators a run needs.
type Dependencies struct {
	Contract    *contract.Contract
	Transformer *transform.Transformer
	Source      source.Client
	Upserts     *core.UpsertEngine
	WriteBack   *core.WriteBackReporter
	Collections core.CollectionsConfig
}

type Option func(*Orchestrator)

func WithLogger(logger core.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(recorder core.MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAllowedStatuses replaces the source statuses that may be imported
// without force.
func WithAllowedStatuses(statuses ...string) Option {
	return func(o *Orchestrator) {
		if len(statuses) > 0 {
			o.allowed = append([]string(nil), statuses...)
		}
	}
}

// WithChildConcurrency bounds how many children of one entity type are
// processed at once. Values below 2 keep processing sequential.
func WithChildConcurrency(limit int) Option {
	return func(o *Orchestrator) {
		o.concurrency = limit
	}
}

func WithRunRecorder(recorder RunRecorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

func WithDefaultMode(mode contract.Mode) Option {
	return func(o *Orchestrator) {
		if mode.IsValid() {
			o.mode = mode
		}
	}
}

func WithLookupTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.lookupTTL = ttl
	}
}

// Orchestrator imports one course and its dependents in dependency order:
// phase, course, then lessons, assignments and resources.
type Orchestrator struct {
	deps        Dependencies
	logger      core.Logger
	metrics     core.MetricsRecorder
	now         func() time.Time
	allowed     []string
	concurrency int
	recorder    RunRecorder
	mode        contract.Mode
	lookupTTL   time.Duration
}

func NewOrchestrator(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Contract == nil:
		return nil, fmt.Errorf("sync: contract is required")
	case deps.Source == nil:
		return nil, fmt.Errorf("sync: source client is required")
	case deps.Upserts == nil:
		return nil, fmt.Errorf("sync: upsert engine is required")
	case deps.WriteBack == nil:
		return nil, fmt.Errorf("sync: write-back reporter is required")
	}
	if deps.Transformer == nil {
		deps.Transformer = transform.New(nil)
	}
	o := &Orchestrator{
		deps:    deps,
		logger:  glog.Nop(),
		metrics: core.NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
		allowed:     core.DefaultAllowedStatuses(),
		concurrency: 1,
		mode:        contract.ModeImport,
		lookupTTL:   10 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

type childKind struct {
	entity     string
	collection string
}

func (o *Orchestrator) childKinds() []childKind {
	return []childKind{
		{entity: EntityLesson, collection: o.deps.Collections.Lessons},
		{entity: EntityAssignment, collection: o.deps.Collections.Assignments},
		{entity: EntityResource, collection: o.deps.Collections.Resources},
	}
}

// run carries the mutable state of one import.
type run struct {
	req     ImportRequest
	lookups *sourceLookups
	logger  core.Logger

	mu     gosync.Mutex
	report Report
}

func (r *run) setState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.State = state
}

func (r *run) record(entry SyncRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := r.report.Counts[entry.Entity]
	counts.add(entry.Outcome)
	r.report.Counts[entry.Entity] = counts
	r.report.Records = append(r.report.Records, entry)
}

func (r *run) fail(failure Failure, counted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if counted {
		counts := r.report.Counts[failure.Entity]
		counts.Failed++
		r.report.Counts[failure.Entity] = counts
	}
	r.report.Failures = append(r.report.Failures, failure)
}

// Run imports the course named by req.CourseID. Child record failures are
// collected in the report; a non-nil error means the run ended fatally.
func (o *Orchestrator) Run(ctx context.Context, req ImportRequest) (Report, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.Mode == "" {
		req.Mode = o.mode
	}
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	lookups, err := newSourceLookups(o.deps.Source, o.lookupTTL)
	if err != nil {
		return Report{}, core.WrapSyncError(err, goerrors.CategoryInternal, core.SyncErrorInternal, "sync: build lookup cache", nil)
	}

	startedAt := o.now()
	r := &run{
		req:     req,
		lookups: lookups,
		report: Report{
			RunID:     uuid.NewString(),
			CourseID:  req.CourseID,
			Mode:      req.Mode,
			DryRun:    req.DryRun,
			Force:     req.Force,
			Counts:    map[string]EntityCounts{},
			StartedAt: startedAt,
		},
	}
	r.logger = o.runLogger(r.report)

	runErr := o.execute(ctx, r)

	report := r.snapshot()
	failedAt := report.State
	if runErr != nil {
		report.State = StateFatal
		report.Error = core.ErrorMessage(runErr)
	}
	report.FinishedAt = o.now()

	outcome := "done"
	switch {
	case runErr != nil:
		outcome = "fatal"
	case report.Gated:
		outcome = "gated"
	}
	o.metrics.IncCounter(ctx, "contentsync.run.total", 1, map[string]string{"outcome": outcome})
	o.metrics.ObserveHistogram(ctx, "contentsync.run.duration_ms", float64(report.Duration().Milliseconds()), map[string]string{"outcome": outcome})

	if o.recorder != nil && !report.DryRun {
		if err := o.recorder.RecordRun(ctx, report); err != nil {
			core.LogFields(ctx, r.logger, "warn", "run ledger write failed", map[string]any{"error": err.Error()})
		}
	}
	if runErr != nil {
		core.LogFields(ctx, r.logger, "error", "import failed", map[string]any{"error": report.Error, "state": string(failedAt)})
	}
	return report, runErr
}

func (o *Orchestrator) runLogger(report Report) core.Logger {
	logger := o.logger
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(map[string]any{
			"run_id":    report.RunID,
			"course_id": report.CourseID,
			"dry_run":   report.DryRun,
		})
	}
	return logger
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	root, err := o.findCourse(ctx, r.lookups, r.req.CourseID)
	if err != nil {
		return err
	}
	status := transform.Status(root.Properties)
	r.mu.Lock()
	r.report.CoursePageID = root.ID
	r.report.CourseTitle = transform.CourseTitle(root.Properties)
	r.report.SourceStatus = status
	r.report.State = StateFetched
	r.mu.Unlock()

	if !r.req.Force && !o.importable(status) {
		r.mu.Lock()
		r.report.Gated = true
		r.report.State = StateDone
		r.mu.Unlock()
		core.LogFields(ctx, r.logger, "info", fmt.Sprintf("course status %q is not importable, skipping (use --force to override)", status), map[string]any{
			"allowed": o.allowed,
		})
		return nil
	}

	if err := o.importRoot(ctx, r, root); err != nil {
		o.reportRootFailure(ctx, r, root, err)
		return err
	}

	r.setState(StateChildrenProcessing)
	courseID := transform.CourseID(root.Properties)
	courseTargetID := o.courseTargetID(r)
	for _, kind := range o.childKinds() {
		if err := o.importChildren(ctx, r, kind, courseID, root.ID, courseTargetID); err != nil {
			return err
		}
	}
	r.setState(StateDone)

	report := r.snapshot()
	totals := report.Totals()
	core.LogFields(ctx, r.logger, "info", "import finished", map[string]any{
		"created":  totals.Created,
		"updated":  totals.Updated,
		"skipped":  totals.Skipped,
		"failed":   totals.Failed,
		"failures": len(report.Failures),
	})
	return nil
}

func (r *run) snapshot() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// importRoot resolves the parent phase, upserts it, then upserts the course
// pointing at the phase and writes the success status back to the course.
func (o *Orchestrator) importRoot(ctx context.Context, r *run, root source.Record) error {
	courseID := transform.CourseID(root.Properties)
	if courseID == "" {
		return core.NewSyncError(
			fmt.Sprintf("Course %s is missing courseId", root.ID),
			goerrors.CategoryValidation,
			core.SyncErrorMissingIdentity,
			map[string]any{"source_id": root.ID},
		)
	}
	phaseID, ok := transform.PhaseRelationID(root.Properties)
	if !ok {
		return core.NewSyncError(
			fmt.Sprintf("Course %s has no linked phase", courseID),
			goerrors.CategoryValidation,
			core.SyncErrorMissingParentRelation,
			map[string]any{"source_id": root.ID, "course_id": courseID},
		)
	}
	phaseRecord, err := r.lookups.record(ctx, phaseID)
	if err != nil {
		return core.WrapSyncError(err, goerrors.CategoryNotFound, core.SyncErrorMissingParentRelation,
			fmt.Sprintf("Phase %s linked from course %s could not be loaded", phaseID, courseID),
			map[string]any{"phase_source_id": phaseID, "course_id": courseID})
	}

	phase, err := o.upsertRecord(ctx, r, EntityPhase, phaseRecord, nil)
	if err != nil {
		return err
	}
	r.setState(StatePhaseResolved)

	course, err := o.upsertRecord(ctx, r, EntityCourse, root, map[string]any{parentRelationField: phase.TargetID})
	if err != nil {
		return err
	}
	r.setState(StateUpserted)

	_, err = o.deps.WriteBack.Report(ctx, root.ID, core.WriteBackStatus{
		TargetID: course.TargetID,
		Checksum: course.Checksum,
		SyncedAt: o.now(),
		Status:   SourceStatusSynced,
	}, r.req.DryRun)
	if err != nil {
		return err
	}
	_ = r.lookups.forget(ctx, root.ID)
	return nil
}

// reportRootFailure writes a fatal error onto the root record. Failures here
// are logged only; the original error is what the caller sees.
func (o *Orchestrator) reportRootFailure(ctx context.Context, r *run, root source.Record, cause error) {
	if core.HasCode(cause, core.SyncErrorWriteBackFailed) {
		return
	}
	if _, err := o.deps.WriteBack.Report(ctx, root.ID, core.WriteBackStatus{Error: core.ErrorMessage(cause)}, r.req.DryRun); err != nil {
		core.LogFields(ctx, r.logger, "warn", "could not record failure on course", map[string]any{
			"source_id": root.ID, "error": err.Error(),
		})
	}
}

func (o *Orchestrator) courseTargetID(r *run) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.report.Records {
		if entry.Entity == EntityCourse {
			return entry.TargetID
		}
	}
	return ""
}

// upsertRecord runs one record through transform, contract validation and
// the upsert engine, and records the outcome on the report.
func (o *Orchestrator) upsertRecord(
	ctx context.Context,
	r *run,
	entityName string,
	record source.Record,
	relations map[string]any,
) (core.UpsertResult, error) {
	entity, ok := o.deps.Contract.Entity(entityName)
	if !ok {
		return core.UpsertResult{}, core.NewSyncError(
			fmt.Sprintf("entity %s is not declared in the contract", entityName),
			goerrors.CategoryInternal,
			core.SyncErrorInternal,
			map[string]any{"entity": entityName},
		)
	}
	payload, err := o.deps.Transformer.Transform(entityName, record)
	if err != nil {
		return core.UpsertResult{}, err
	}
	for field, value := range relations {
		payload[field] = value
	}
	payload[core.FieldSynced] = true

	validated, err := o.deps.Contract.Validate(entityName, payload, r.req.Mode)
	if err != nil {
		return core.UpsertResult{}, err
	}

	label := transform.RecordLabel(record)
	result, err := o.deps.Upserts.Upsert(ctx, core.UpsertRequest{
		Entity:          entityName,
		Collection:      entity.Collection,
		IdentityField:   entity.Identity,
		Payload:         validated,
		ImmutableFields: entity.ImmutableFields(),
		Label:           label,
		Force:           r.req.Force,
		DryRun:          r.req.DryRun,
	})
	if err != nil {
		return result, err
	}
	r.record(SyncRecord{
		Entity:   entityName,
		SourceID: record.ID,
		Label:    label,
		Identity: result.Identity,
		TargetID: result.TargetID,
		Checksum: result.Checksum,
		Outcome:  result.Outcome,
	})
	return result, nil
}

// importChildren processes every record of one child type that belongs to
// the course. Listing failures are fatal; per-record failures are not.
func (o *Orchestrator) importChildren(
	ctx context.Context,
	r *run,
	kind childKind,
	courseID string,
	coursePageID string,
	courseTargetID string,
) error {
	if strings.TrimSpace(kind.collection) == "" {
		core.LogFields(ctx, r.logger, "warn", "no source collection configured, skipping entity", map[string]any{"entity": kind.entity})
		return nil
	}
	records, err := r.lookups.collection(ctx, kind.collection)
	if err != nil {
		return core.WrapSyncError(err, goerrors.CategoryExternal, core.SyncErrorInternal,
			fmt.Sprintf("listing %s records failed", kind.entity),
			map[string]any{"entity": kind.entity, "collection": kind.collection})
	}

	children := make([]source.Record, 0, len(records))
	seen := map[string]struct{}{}
	for _, record := range records {
		if !transform.BelongsToCourse(record, courseID, coursePageID) {
			continue
		}
		key := source.NormalizeID(record.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		children = append(children, record)
	}
	core.LogFields(ctx, r.logger, "info", fmt.Sprintf("processing %d %s records", len(children), strings.ToLower(kind.entity)), map[string]any{
		"entity": kind.entity,
	})

	if o.concurrency < 2 || len(children) < 2 {
		for _, child := range children {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.importChild(ctx, r, kind.entity, child, courseTargetID)
		}
		return nil
	}

	group := new(errgroup.Group)
	group.SetLimit(o.concurrency)
	for _, child := range children {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.importChild(ctx, r, kind.entity, child, courseTargetID)
			return nil
		})
	}
	return group.Wait()
}

// importChild never returns an error: any failure is recorded on the report
// and written back to the child record.
func (o *Orchestrator) importChild(ctx context.Context, r *run, entity string, record source.Record, courseTargetID string) {
	label := transform.RecordLabel(record)
	result, err := o.upsertRecord(ctx, r, entity, record, map[string]any{courseRelationField: courseTargetID})
	if err != nil {
		message := core.ErrorMessage(err)
		code := textCode(err)
		if core.HasCode(err, core.SyncErrorLocked) {
			code = core.SyncErrorLocked
		}
		r.fail(Failure{
			Entity:   entity,
			SourceID: record.ID,
			Label:    label,
			Stage:    "upsert",
			Code:     code,
			Message:  message,
		}, true)
		core.LogFields(ctx, r.logger, "warn", fmt.Sprintf("%s failed: %s", entity, label), map[string]any{
			"source_id": record.ID, "error": message,
		})
		if _, wbErr := o.deps.WriteBack.Report(ctx, record.ID, core.WriteBackStatus{Error: message}, r.req.DryRun); wbErr != nil {
			core.LogFields(ctx, r.logger, "warn", "could not record failure on source", map[string]any{
				"source_id": record.ID, "error": core.ErrorMessage(wbErr),
			})
		}
		return
	}

	// Checksum skips are written back too, refreshing lastSyncedAt and
	// clearing errors left by an earlier failed run.
	_, err = o.deps.WriteBack.Report(ctx, record.ID, core.WriteBackStatus{
		TargetID: result.TargetID,
		Checksum: result.Checksum,
		SyncedAt: o.now(),
	}, r.req.DryRun)
	if err != nil {
		r.fail(Failure{
			Entity:   entity,
			SourceID: record.ID,
			Label:    label,
			Stage:    "write_back",
			Code:     textCode(err),
			Message:  core.ErrorMessage(err),
		}, false)
	}
}

func textCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}

func (o *Orchestrator) importable(status string) bool {
	for _, allowed := range o.allowed {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(status)) {
			return true
		}
	}
	return false
}

// findCourse accepts a source page id (bare or inside a URL) or a human course
// id matched case-insensitively.
func (o *Orchestrator) findCourse(ctx context.Context, lookups *sourceLookups, courseID string) (source.Record, error) {
	if pageID, ok := source.ExtractID(courseID); ok {
		record, err := lookups.record(ctx, pageID)
		if err == nil {
			return record, nil
		}
		if !source.IsNotFound(err) {
			return source.Record{}, err
		}
	}
	if strings.TrimSpace(o.deps.Collections.Courses) == "" {
		return source.Record{}, core.NewSyncError("courses collection is not configured", goerrors.CategoryBadInput, core.ConfigErrorMissingVariable,
			map[string]any{"variable": core.EnvCoursesCollection})
	}
	records, err := lookups.collection(ctx, o.deps.Collections.Courses)
	if err != nil {
		return source.Record{}, err
	}
	for _, record := range records {
		if strings.EqualFold(transform.CourseID(record.Properties), courseID) {
			return record, nil
		}
	}
	return source.Record{}, core.NewSyncError(
		fmt.Sprintf("Course %q not found", courseID),
		goerrors.CategoryNotFound,
		core.SyncErrorRootNotFound,
		map[string]any{"course_id": courseID},
	)
}

// ListCourses returns every course in the courses collection with its
// import eligibility, sorted by course id.
func (o *Orchestrator) ListCourses(ctx context.Context) ([]CourseSummary, error) {
	if strings.TrimSpace(o.deps.Collections.Courses) == "" {
		return nil, core.NewSyncError("courses collection is not configured", goerrors.CategoryBadInput, core.ConfigErrorMissingVariable,
			map[string]any{"variable": core.EnvCoursesCollection})
	}
	records, err := source.ListAll(ctx, o.deps.Source, o.deps.Collections.Courses)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(records))
	for _, record := range records {
		status := transform.Status(record.Properties)
		out = append(out, CourseSummary{
			PageID:     record.ID,
			CourseID:   transform.CourseID(record.Properties),
			Title:      transform.CourseTitle(record.Properties),
			Status:     status,
			Importable: o.importable(status),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}
