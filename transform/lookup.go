package transform

import (
	"strings"

	"github.com/goliatone/go-content-sync/source"
)

var (
	CourseIDAliases       = []string{"courseId", "Course ID", "Course Id", "CourseId", "course id"}
	CourseTitleAliases    = []string{"courseName", "Course Name", "name", "Name", "title", "Title"}
	StatusAliases         = []string{"status", "Status", "Import Status", "importStatus"}
	CourseRelationAliases = []string{"course", "Course", "linkedCourse", "relatedCourse"}
)

var PhaseRelationAliases = []string{
	"linkedPhase", "Linked Phase",
	"phase", "Phase",
	"formationPhase", "Formation Phase", "Formation phase", "formation phase",
	"formation_phases", "Formation Phases",
}

func firstText(props source.Properties, aliases []string) string {
	for _, alias := range aliases {
		if value, ok := source.Text(props[alias]); ok {
			return value
		}
	}
	return ""
}

func CourseID(props source.Properties) string {
	return firstText(props, CourseIDAliases)
}

func CourseTitle(props source.Properties) string {
	if value, ok := source.Text(props.First(CourseTitleAliases...)); ok {
		return value
	}
	return ""
}

func Status(props source.Properties) string {
	return firstText(props, StatusAliases)
}

// RecordLabel is the human readable name used in logs and failure lists.
func RecordLabel(record source.Record) string {
	for _, aliases := range [][]string{
		{"lessonTitle", "title", "Title"},
		{"name", "Name", "assignmentName", "resourceTitle"},
		CourseTitleAliases,
	} {
		if value, ok := source.Text(record.Properties.First(aliases...)); ok {
			return value
		}
	}
	return record.ID
}

// PhaseRelationID returns the first phase page referenced by the course,
// directly or through a rollup.
func PhaseRelationID(props source.Properties) (string, bool) {
	for _, alias := range PhaseRelationAliases {
		if id, ok := source.FirstRelationID(props[alias]); ok {
			return id, true
		}
	}
	return "", false
}

// BelongsToCourse reports whether a child record is attached to the course,
// either by course id text or by relation to the course page.
func BelongsToCourse(record source.Record, courseID string, coursePageID string) bool {
	courseID = strings.ToLower(strings.TrimSpace(courseID))
	if courseID != "" && strings.ToLower(CourseID(record.Properties)) == courseID {
		return true
	}
	target := source.NormalizeID(coursePageID)
	if target != "" {
		for _, alias := range CourseRelationAliases {
			for _, id := range source.RelationIDs(record.Properties[alias]) {
				if source.NormalizeID(id) == target {
					return true
				}
			}
		}
	}
	if courseID != "" {
		if text, ok := source.Text(record.Properties["course"]); ok && strings.ToLower(text) == courseID {
			return true
		}
	}
	return false
}
