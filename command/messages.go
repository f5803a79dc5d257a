package command

import (
	"strings"

	"github.com/goliatone/go-content-sync/contract"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

const (
	TypeImportCourse = "contentsync.command.import_course"
)

type ImportCourseMessage struct {
	Request syncpkg.ImportRequest
}

func (ImportCourseMessage) Type() string { return TypeImportCourse }

func (m ImportCourseMessage) Validate() error {
	if strings.TrimSpace(m.Request.CourseID) == "" {
		return commandValidationError("course_id", "course id is required")
	}
	if m.Request.Mode != "" && !m.Request.Mode.IsValid() {
		return commandValidationError("mode", "mode must be "+string(contract.ModeImport)+" or "+string(contract.ModeRuntime))
	}
	return nil
}
