package sync

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	goerrors "github.com/goliatone/go-errors"
)

// State is the position of a run in the import state machine.
type State string

const (
	StateFetched            State = "fetched"
	StatePhaseResolved      State = "phase_resolved"
	StateUpserted           State = "upserted"
	StateChildrenProcessing State = "children_processing"
	StateDone               State = "done"
	StateFatal              State = "fatal"
)

// ImportRequest selects one root course and how it is imported.
type ImportRequest struct {
	CourseID string
	DryRun   bool
	Force    bool
	Mode     contract.Mode
}

func (r ImportRequest) Validate() error {
	if strings.TrimSpace(r.CourseID) == "" {
		return core.NewSyncError("course id is required", goerrors.CategoryBadInput, core.SyncErrorInvalidRequest, nil)
	}
	if r.Mode != "" && !r.Mode.IsValid() {
		return core.NewSyncError(
			fmt.Sprintf("unsupported mode %q", r.Mode),
			goerrors.CategoryBadInput,
			core.SyncErrorInvalidRequest,
			map[string]any{"mode": string(r.Mode)},
		)
	}
	return nil
}

type EntityCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (c *EntityCounts) add(outcome core.Outcome) {
	switch outcome {
	case core.OutcomeCreated:
		c.Created++
	case core.OutcomeUpdated:
		c.Updated++
	case core.OutcomeSkipped:
		c.Skipped++
	default:
		c.Failed++
	}
}

func (c EntityCounts) plus(other EntityCounts) EntityCounts {
	return EntityCounts{
		Created: c.Created + other.Created,
		Updated: c.Updated + other.Updated,
		Skipped: c.Skipped + other.Skipped,
		Failed:  c.Failed + other.Failed,
	}
}

// Failure is one record that did not sync. Stage is "upsert" or "write_back".
type Failure struct {
	Entity   string `json:"entity"`
	SourceID string `json:"source_id"`
	Label    string `json:"label"`
	Stage    string `json:"stage"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s failed: %s: %s", f.Entity, f.Label, f.Message)
}

// SyncRecord is the outcome for one record the run touched.
type SyncRecord struct {
	Entity   string       `json:"entity"`
	SourceID string       `json:"source_id"`
	Label    string       `json:"label"`
	Identity string       `json:"identity,omitempty"`
	TargetID string       `json:"target_id,omitempty"`
	Checksum string       `json:"checksum,omitempty"`
	Outcome  core.Outcome `json:"outcome"`
}

// Report is the audit record of one run.
type Report struct {
	RunID        string                  `json:"run_id"`
	CourseID     string                  `json:"course_id"`
	CoursePageID string                  `json:"course_page_id,omitempty"`
	CourseTitle  string                  `json:"course_title,omitempty"`
	SourceStatus string                  `json:"source_status,omitempty"`
	Mode         contract.Mode           `json:"mode"`
	DryRun       bool                    `json:"dry_run"`
	Force        bool                    `json:"force"`
	Gated        bool                    `json:"gated"`
	State        State                   `json:"state"`
	Counts       map[string]EntityCounts `json:"counts"`
	Failures     []Failure               `json:"failures,omitempty"`
	Records      []SyncRecord            `json:"records,omitempty"`
	Error        string                  `json:"error,omitempty"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
}

func (r Report) Totals() EntityCounts {
	total := EntityCounts{}
	for _, counts := range r.Counts {
		total = total.plus(counts)
	}
	return total
}

// Succeeded is true when the run did not end fatally. Child failures do not
// make a run unsuccessful.
func (r Report) Succeeded() bool {
	return r.State == StateDone
}

// Errors renders failures in "<Entity> failed: <label>: <message>" form.
func (r Report) Errors() []string {
	out := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		out = append(out, failure.String())
	}
	return out
}

// Entities returns the entity names with counts in import order. Names
// outside the import order follow, sorted.
func (r Report) Entities() []string {
	names := make([]string, 0, len(r.Counts))
	for _, name := range importOrder {
		if _, ok := r.Counts[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range r.Counts {
		if !slices.Contains(importOrder, name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CourseSummary is one importable root as shown by --list.
type CourseSummary struct {
	PageID     string `json:"page_id"`
	CourseID   string `json:"course_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Importable bool   `json:"importable"`
}
