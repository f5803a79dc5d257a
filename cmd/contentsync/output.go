package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	contentsync "github.com/goliatone/go-content-sync"
	"github.com/goliatone/go-content-sync/core"
)

func printReport(w io.Writer, report contentsync.Report) {
	title := report.CourseID
	if report.CourseTitle != "" {
		title = fmt.Sprintf("%s (%s)", report.CourseID, report.CourseTitle)
	}
	prefix := ""
	if report.DryRun {
		prefix = core.DryRunMarker + " "
	}
	fmt.Fprintf(w, "%sCourse %s\n", prefix, title)
	fmt.Fprintf(w, "  run=%s mode=%s state=%s force=%t duration=%s\n",
		report.RunID, report.Mode, report.State, report.Force, report.Duration().Round(time.Millisecond))

	if report.Gated {
		fmt.Fprintf(w, "  course status %q is not importable; nothing was imported (use --force to override)\n", report.SourceStatus)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ENTITY\tCREATED\tUPDATED\tSKIPPED\tFAILED")
	for _, entity := range report.Entities() {
		counts := report.Counts[entity]
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\n", entity, counts.Created, counts.Updated, counts.Skipped, counts.Failed)
	}
	totals := report.Totals()
	fmt.Fprintf(tw, "  total\t%d\t%d\t%d\t%d\n", totals.Created, totals.Updated, totals.Skipped, totals.Failed)
	_ = tw.Flush()

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "Failures (%d):\n", len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "  - %s\n", failure.String())
		}
	}
	if report.Error != "" {
		fmt.Fprintf(w, "Fatal: %s\n", report.Error)
	}
}

func printCourses(w io.Writer, courses []contentsync.CourseSummary) {
	if len(courses) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE ID\tCOURSE ID\tTITLE\tSTATUS\tIMPORTABLE")
	for _, course := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			course.PageID, dash(course.CourseID), dash(course.Title), dash(course.Status), yesNo(course.Importable))
	}
	_ = tw.Flush()
}

func printRuns(w io.Writer, page contentsync.RunPage) {
	if len(page.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN ID\tCOURSE\tSTATE\tDRY RUN\tCREATED\tUPDATED\tSKIPPED\tFAILED")
	for _, report := range page.Runs {
		totals := report.Totals()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			report.StartedAt.UTC().Format(time.RFC3339),
			report.RunID,
			dash(report.CourseID),
			report.State,
			yesNo(report.DryRun),
			totals.Created, totals.Updated, totals.Skipped, totals.Failed,
		)
	}
	_ = tw.Flush()
	if page.Total > len(page.Runs) {
		fmt.Fprintf(w, "showing %d of %d runs\n", len(page.Runs), page.Total)
	}
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
