package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	contentcommand "github.com/goliatone/go-content-sync/command"
	"github.com/goliatone/go-content-sync/query"
	syncpkg "github.com/goliatone/go-content-sync/sync"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// Handlers are the content sync handlers exposed through the dispatcher.
// ListCourses and ListRuns are optional.
type Handlers struct {
	ImportCourse *contentcommand.ImportCourseCommand
	ListCourses  *query.ListCoursesQuery
	ListRuns     *query.ListRunsQuery
}

// Bus registers the content sync handlers with a go-command registry and
// subscribes them to the global dispatcher. Close releases the
// subscriptions.
type Bus struct {
	registry *command.Registry

	mu            sync.Mutex
	subscriptions []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry}
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

// AddQueueResolver mirrors registered handlers into a go-job queue registry
// under key once the registry initializes.
func (b *Bus) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) HasResolver(key string) bool {
	if b == nil || b.registry == nil {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Register subscribes every configured handler. Nothing stays subscribed
// when it fails.
func (b *Bus) Register(handlers Handlers, runnerOpts ...runner.Option) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if handlers.ImportCourse == nil {
		return fmt.Errorf("gocommand: import course command is required")
	}

	var added []commanddispatcher.Subscription
	track := func(sub commanddispatcher.Subscription, handler any) error {
		if err := b.registry.RegisterCommand(handler); err != nil {
			if sub != nil {
				sub.Unsubscribe()
			}
			return err
		}
		added = append(added, sub)
		return nil
	}
	release := func() {
		for _, sub := range added {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}

	err := track(commanddispatcher.SubscribeCommand[contentcommand.ImportCourseMessage](handlers.ImportCourse, runnerOpts...), handlers.ImportCourse)
	if err == nil && handlers.ListCourses != nil {
		err = track(commanddispatcher.SubscribeQuery[query.ListCoursesMessage, []syncpkg.CourseSummary](handlers.ListCourses, runnerOpts...), handlers.ListCourses)
	}
	if err == nil && handlers.ListRuns != nil {
		err = track(commanddispatcher.SubscribeQuery[query.ListRunsMessage, query.RunPage](handlers.ListRuns, runnerOpts...), handlers.ListRuns)
	}
	if err != nil {
		release()
		return err
	}

	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, added...)
	b.mu.Unlock()
	return nil
}

// Subscriptions reports how many handlers are currently subscribed.
func (b *Bus) Subscriptions() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()
	for _, sub := range subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// DispatchImport dispatches an import and returns the report the command
// stored, which is present even when the run was fatal.
func DispatchImport(ctx context.Context, req syncpkg.ImportRequest) (syncpkg.Report, error) {
	msg := contentcommand.ImportCourseMessage{Request: req}
	if err := command.ValidateMessage(msg); err != nil {
		return syncpkg.Report{}, err
	}
	collector := command.NewResult[syncpkg.Report]()
	err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg)
	report, _ := collector.Load()
	return report, err
}

func QueryCourses(ctx context.Context, importableOnly bool) ([]syncpkg.CourseSummary, error) {
	return commanddispatcher.Query[query.ListCoursesMessage, []syncpkg.CourseSummary](ctx, query.ListCoursesMessage{ImportableOnly: importableOnly})
}

func QueryRuns(ctx context.Context, msg query.ListRunsMessage) (query.RunPage, error) {
	if err := command.ValidateMessage(msg); err != nil {
		return query.RunPage{}, err
	}
	return commanddispatcher.Query[query.ListRunsMessage, query.RunPage](ctx, msg)
}
