package query

import "strings"

const (
	TypeListCourses = "contentsync.query.courses.list"
	TypeListRuns    = "contentsync.query.runs.list"
)

// ListCoursesMessage enumerates source courses. ImportableOnly drops courses
// whose status would gate an import.
type ListCoursesMessage struct {
	ImportableOnly bool
}

func (ListCoursesMessage) Type() string { return TypeListCourses }

func (ListCoursesMessage) Validate() error { return nil }

type ListRunsMessage struct {
	CourseID string
	Limit    int
	Offset   int
}

func (ListRunsMessage) Type() string { return TypeListRuns }

func (m ListRunsMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	if m.CourseID != "" && strings.TrimSpace(m.CourseID) == "" {
		return queryValidationError("course_id", "course id must not be blank")
	}
	return nil
}
