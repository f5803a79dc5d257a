package command

import (
	gocmd "github.com/goliatone/go-command"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

var (
	_ gocmd.Commander[ImportCourseMessage] = (*ImportCourseCommand)(nil)
	_ Importer                             = (*syncpkg.Orchestrator)(nil)
)
