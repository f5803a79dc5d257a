package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	syncpkg "github.com/goliatone/go-content-sync/sync"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const JobIDImportCourse = "contentsync.import_course"

const (
	paramCourseID = "course_id"
	paramDryRun   = "dry_run"
	paramForce    = "force"
	paramMode     = "mode"
)

// RetryPolicy bounds redelivery of failed imports.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt clamps the nack delay and settles the disposition. An
// empty disposition retries. Once attempt reaches MaxAttempts a retry turns
// into a dead letter (DeadLetterOnMax) or a terminal failure.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Disposition = queue.NackDispositionFailed
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		}
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
	}
	return out
}

// IdempotencyKey identifies one queued import. Two requests for the same
// course with the same flags collapse to one key.
func IdempotencyKey(req syncpkg.ImportRequest) string {
	mode := req.Mode
	if mode == "" {
		mode = contract.ModeImport
	}
	return fmt.Sprintf("%s:%s:%s:dry_run=%t:force=%t",
		JobIDImportCourse, strings.TrimSpace(req.CourseID), mode, req.DryRun, req.Force)
}

// ToExecutionMessage maps an import request to a go-job message.
func ToExecutionMessage(req syncpkg.ImportRequest) *job.ExecutionMessage {
	params := map[string]any{
		paramCourseID: strings.TrimSpace(req.CourseID),
		paramDryRun:   req.DryRun,
		paramForce:    req.Force,
	}
	if req.Mode != "" {
		params[paramMode] = string(req.Mode)
	}
	return &job.ExecutionMessage{
		JobID:          JobIDImportCourse,
		ScriptPath:     JobIDImportCourse,
		Parameters:     params,
		IdempotencyKey: IdempotencyKey(req),
	}
}

// FromExecutionMessage decodes an import request. Parameters may arrive as
// native values or as strings after a JSON round trip through a queue.
func FromExecutionMessage(msg *job.ExecutionMessage) (syncpkg.ImportRequest, error) {
	if msg == nil {
		return syncpkg.ImportRequest{}, invalidMessageError("gojob: execution message is required", nil)
	}
	if strings.TrimSpace(msg.JobID) != JobIDImportCourse {
		return syncpkg.ImportRequest{}, invalidMessageError(
			fmt.Sprintf("gojob: unexpected job id %q", msg.JobID),
			map[string]any{"job_id": msg.JobID},
		)
	}
	req := syncpkg.ImportRequest{}
	if value, ok := msg.Parameters[paramCourseID].(string); ok {
		req.CourseID = strings.TrimSpace(value)
	}
	var err error
	if req.DryRun, err = boolParam(msg.Parameters, paramDryRun); err != nil {
		return syncpkg.ImportRequest{}, err
	}
	if req.Force, err = boolParam(msg.Parameters, paramForce); err != nil {
		return syncpkg.ImportRequest{}, err
	}
	if raw, ok := msg.Parameters[paramMode].(string); ok && strings.TrimSpace(raw) != "" {
		mode, valid := contract.ParseMode(raw)
		if !valid {
			return syncpkg.ImportRequest{}, invalidMessageError(
				fmt.Sprintf("gojob: unsupported mode %q", raw),
				map[string]any{"mode": raw},
			)
		}
		req.Mode = mode
	}
	if err := req.Validate(); err != nil {
		return syncpkg.ImportRequest{}, err
	}
	return req, nil
}

func boolParam(params map[string]any, key string) (bool, error) {
	switch value := params[key].(type) {
	case nil:
		return false, nil
	case bool:
		return value, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return false, nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false, invalidMessageError(fmt.Sprintf("gojob: parameter %s must be a boolean", key), map[string]any{"parameter": key})
		}
		return parsed, nil
	default:
		return false, invalidMessageError(fmt.Sprintf("gojob: parameter %s must be a boolean", key), map[string]any{"parameter": key})
	}
}

func invalidMessageError(message string, metadata map[string]any) error {
	return core.NewSyncError(message, goerrors.CategoryBadInput, core.SyncErrorInvalidRequest, metadata)
}

type ImportEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewImportEnqueuer(enqueuer queue.Enqueuer) *ImportEnqueuer {
	return &ImportEnqueuer{enqueuer: enqueuer}
}

func (a *ImportEnqueuer) EnqueueImport(ctx context.Context, req syncpkg.ImportRequest) (queue.EnqueueReceipt, error) {
	if a == nil || a.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	if err := req.Validate(); err != nil {
		return queue.EnqueueReceipt{}, err
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(req))
}

// Importer runs one course import. *sync.Orchestrator satisfies it.
type Importer interface {
	Run(ctx context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error)
}

// ImportHandler runs queued imports. Malformed messages are dead lettered,
// fatal runs are retried under the policy, and a run with only child
// failures is acknowledged.
type ImportHandler struct {
	importer Importer
	policy   RetryPolicy
	logger   core.Logger
}

func NewImportHandler(importer Importer, policy RetryPolicy, logger core.Logger) *ImportHandler {
	if logger == nil {
		logger = glog.Nop()
	}
	return &ImportHandler{importer: importer, policy: policy, logger: logger}
}

func (h *ImportHandler) Handle(ctx context.Context, delivery queue.Delivery, attempt int) (syncpkg.Report, error) {
	if h == nil || h.importer == nil {
		return syncpkg.Report{}, fmt.Errorf("gojob: importer is not configured")
	}
	if delivery == nil {
		return syncpkg.Report{}, fmt.Errorf("gojob: delivery is required")
	}
	req, err := FromExecutionMessage(delivery.Message())
	if err != nil {
		h.logger.Warn("gojob: dropping malformed import message", "error", err)
		if nackErr := delivery.Nack(ctx, h.policy.NormalizeAttempt(queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      err.Error(),
		}, attempt)); nackErr != nil {
			return syncpkg.Report{}, nackErr
		}
		return syncpkg.Report{}, err
	}

	report, runErr := h.importer.Run(ctx, req)
	if runErr != nil {
		opts := h.policy.NormalizeAttempt(queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Reason:      core.ErrorMessage(runErr),
		}, attempt)
		h.logger.Error("gojob: import failed",
			"course_id", req.CourseID,
			"attempt", attempt,
			"disposition", string(opts.Disposition),
			"error", runErr,
		)
		if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
			return report, nackErr
		}
		return report, runErr
	}
	if err := delivery.Ack(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// ProcessNext dequeues one delivery and handles it.
func (h *ImportHandler) ProcessNext(ctx context.Context, dequeuer queue.Dequeuer, attempt int) (syncpkg.Report, error) {
	if dequeuer == nil {
		return syncpkg.Report{}, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return syncpkg.Report{}, err
	}
	return h.Handle(ctx, delivery, attempt)
}

// LoggingHook reports worker lifecycle events for import jobs.
type LoggingHook struct {
	logger core.Logger
}

func NewLoggingHook(logger core.Logger) *LoggingHook {
	if logger == nil {
		logger = glog.Nop()
	}
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Debug("gojob: import started", eventArgs(event)...)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Info("gojob: import finished", eventArgs(event)...)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Error("gojob: import failed", eventArgs(event)...)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.logger.WithContext(ctx).Warn("gojob: import retry scheduled", eventArgs(event)...)
}

func eventArgs(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	args := []any{"attempt", event.Attempt}
	if message != nil {
		args = append(args, "job_id", message.JobID)
		if courseID, ok := message.Parameters[paramCourseID].(string); ok {
			args = append(args, "course_id", courseID)
		}
	}
	if event.Delay > 0 {
		args = append(args, "delay", event.Delay.String())
	}
	if event.Duration > 0 {
		args = append(args, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err)
	}
	return args
}

var (
	_ worker.Hook = (*LoggingHook)(nil)
	_ Importer    = (*syncpkg.Orchestrator)(nil)
)
