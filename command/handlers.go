package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

// Importer runs one course import. *sync.Orchestrator satisfies it.
type Importer interface {
	Run(ctx context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error)
}

type ImportCourseCommand struct {
	importer Importer
}

func NewImportCourseCommand(importer Importer) *ImportCourseCommand {
	return &ImportCourseCommand{importer: importer}
}

// Execute stores the run report in the context result collector, including
// on a fatal run, and returns the fatal error.
func (c *ImportCourseCommand) Execute(ctx context.Context, msg ImportCourseMessage) error {
	if c == nil || c.importer == nil {
		return commandDependencyError("command: importer is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid import course message")
	}
	report, err := c.importer.Run(ctx, msg.Request)
	storeResult(ctx, report)
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
