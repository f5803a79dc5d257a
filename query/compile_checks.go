package query

import (
	gocmd "github.com/goliatone/go-command"
	sqlstore "github.com/goliatone/go-content-sync/store/sql"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

var (
	_ gocmd.Querier[ListCoursesMessage, []syncpkg.CourseSummary] = (*ListCoursesQuery)(nil)
	_ gocmd.Querier[ListRunsMessage, RunPage]                    = (*ListRunsQuery)(nil)
	_ CourseLister                                               = (*syncpkg.Orchestrator)(nil)
	_ RunReader                                                  = (*sqlstore.RunStore)(nil)
)
