// Package transform turns source records into canonical entity payloads using
// a typed field table. It never validates; unknown or empty properties are
// simply left out of the payload.
package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/goliatone/go-content-sync/source"
)

// Extractor reads one canonical value out of a property bag.
type Extractor func(props source.Properties) (any, bool)

type Field struct {
	Name    string
	Extract Extractor
}

// Table maps an entity name to its ordered field extractors.
type Table map[string][]Field

func text(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		return source.Text(props.First(aliases...))
	}
}

func selectOf(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		return source.Select(props.First(aliases...))
	}
}

func number(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		return source.Number(props.First(aliases...))
	}
}

// integer keeps whole numbers as int64 so order fields serialize without a
// fractional part.
func integer(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		value, ok := source.Number(props.First(aliases...))
		if !ok {
			return nil, false
		}
		if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
			return int64(value), true
		}
		return value, true
	}
}

func checkbox(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		return source.Checkbox(props.First(aliases...))
	}
}

func firstOf(extractors ...Extractor) Extractor {
	return func(props source.Properties) (any, bool) {
		for _, extract := range extractors {
			if value, ok := extract(props); ok {
				return value, true
			}
		}
		return nil, false
	}
}

// slug lowercases an extracted value; enum values in the contract are slugs.
func slug(extract Extractor) Extractor {
	return func(props source.Properties) (any, bool) {
		value, ok := extract(props)
		if !ok {
			return nil, false
		}
		text, isText := value.(string)
		if !isText {
			return value, true
		}
		text = strings.ToLower(strings.TrimSpace(text))
		return text, text != ""
	}
}

func weeks(aliases ...string) Extractor {
	return func(props source.Properties) (any, bool) {
		value, ok := source.Number(props.First(aliases...))
		if !ok {
			return nil, false
		}
		return fmt.Sprintf("%s weeks", trimFloat(value)), true
	}
}

func trimFloat(value float64) string {
	if value == math.Trunc(value) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}

var syncLockField = Field{Name: "syncLock", Extract: checkbox("syncLock", "Sync Lock")}

// DefaultTable returns the field table for the formation catalogue.
func DefaultTable() Table {
	return Table{
		"Phase": {
			{Name: "phaseId", Extract: slug(text("phaseId", "Phase ID", "slug", "Slug"))},
			{Name: "phaseName", Extract: text("phaseName", "Phase Name", "name", "Name")},
			{Name: "phase", Extract: slug(firstOf(
				text("slug", "Slug"),
				selectOf("phase", "formationPhase", "Formation Phase"),
			))},
			{Name: "order", Extract: integer("order", "Order")},
			{Name: "description", Extract: text("description", "Description")},
			syncLockField,
		},
		"Course": {
			{Name: "courseId", Extract: text(CourseIDAliases...)},
			{Name: "slug", Extract: text("slug", "Slug", "courseId", "Course ID")},
			{Name: "name", Extract: text(CourseTitleAliases...)},
			{Name: "excerpt", Extract: text("excerpt", "Excerpt")},
			{Name: "ctaLabel", Extract: text("ctaLabel", "CTA Label", "Call to Action Label")},
			{Name: "ctaUrl", Extract: text("ctaUrl", "CTA URL", "Call to Action URL")},
			{Name: "seoTitle", Extract: text("seoTitle", "SEO Title")},
			{Name: "seoDescription", Extract: text("seoDescription", "SEO Description")},
			{Name: "description", Extract: text("description", "Description")},
			{Name: "status", Extract: selectOf("status", "Status")},
			{Name: "requiredAccessLevel", Extract: selectOf("requiredAccessLevel", "Required Access Level")},
			{Name: "featured", Extract: checkbox("featured", "Featured")},
			{Name: "level", Extract: selectOf("level", "Level", "Course Level")},
			{Name: "estimatedDuration", Extract: firstOf(
				text("estimatedDuration", "Estimated Duration"),
				weeks("Duration (Weeks)"),
			)},
			syncLockField,
		},
		"Lesson": {
			{Name: "slug", Extract: text("slug", "Slug", "Lesson Slug")},
			{Name: "title", Extract: text("lessonTitle", "title", "Title")},
			{Name: "order", Extract: integer("order", "Order")},
			{Name: "summary", Extract: text("summary", "Summary")},
			{Name: "duration", Extract: number("duration", "Duration")},
			{Name: "videoUrl", Extract: text("videoUrl", "Video URL", "video")},
			{Name: "transcript", Extract: text("content", "transcript", "Transcript")},
			syncLockField,
		},
		"Assignment": {
			{Name: "assignmentId", Extract: text("assignmentId", "Assignment ID")},
			{Name: "name", Extract: text("name", "assignmentName", "title", "Name")},
			{Name: "assignmentType", Extract: selectOf("assignmentType", "Assignment Type")},
			{Name: "outputFormat", Extract: selectOf("outputFormat", "Output Format")},
			{Name: "instructions", Extract: text("instructions", "Instructions")},
			{Name: "description", Extract: text("description", "Description")},
			syncLockField,
		},
		"Resource": {
			{Name: "resourceId", Extract: text("resourceId", "Resource ID")},
			{Name: "title", Extract: text("title", "resourceTitle", "Title")},
			{Name: "resourceType", Extract: selectOf("resourceType", "Resource Type")},
			{Name: "url", Extract: text("url", "URL")},
			{Name: "description", Extract: text("description", "Description")},
			syncLockField,
		},
	}
}
