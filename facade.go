package contentsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-content-sync/adapters/gocommand"
	"github.com/goliatone/go-content-sync/adapters/gojob"
	gologger "github.com/goliatone/go-content-sync/adapters/gologger"
	contentcommand "github.com/goliatone/go-content-sync/command"
	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	"github.com/goliatone/go-content-sync/query"
	"github.com/goliatone/go-content-sync/source"
	sqlstore "github.com/goliatone/go-content-sync/store/sql"
	syncpkg "github.com/goliatone/go-content-sync/sync"
	"github.com/goliatone/go-content-sync/target"
	"github.com/goliatone/go-content-sync/transform"
	"github.com/goliatone/go-content-sync/transport"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	persistence "github.com/goliatone/go-persistence-bun"
)

type Commands struct {
	ImportCourse *contentcommand.ImportCourseCommand
}

// Queries holds the read handlers. ListRuns is nil without a run ledger.
type Queries struct {
	ListCourses *query.ListCoursesQuery
	ListRuns    *query.ListRunsQuery
}

type Option func(*runtimeBuilder)

type runtimeBuilder struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	httpClient     transport.HTTPDoer
	contract       *contract.Contract
	source         source.Client
	target         target.Store
	recorder       syncpkg.RunRecorder
	now            func() time.Time
}

func WithLogger(logger core.Logger) Option {
	return func(b *runtimeBuilder) { b.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *runtimeBuilder) { b.loggerProvider = provider }
}

func WithMetrics(recorder core.MetricsRecorder) Option {
	return func(b *runtimeBuilder) { b.metrics = recorder }
}

// WithHTTPClient replaces the HTTP client used by the Notion and Strapi
// clients.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *runtimeBuilder) { b.httpClient = client }
}

func WithContract(c *contract.Contract) Option {
	return func(b *runtimeBuilder) { b.contract = c }
}

func WithSourceClient(client source.Client) Option {
	return func(b *runtimeBuilder) { b.source = client }
}

func WithTargetStore(store target.Store) Option {
	return func(b *runtimeBuilder) { b.target = store }
}

func WithRunRecorder(recorder syncpkg.RunRecorder) Option {
	return func(b *runtimeBuilder) { b.recorder = recorder }
}

func WithClock(now func() time.Time) Option {
	return func(b *runtimeBuilder) { b.now = now }
}

// Runtime is a fully wired importer built from Config.
type Runtime struct {
	config       Config
	logger       core.Logger
	provider     core.LoggerProvider
	orchestrator *syncpkg.Orchestrator
	runs         *sqlstore.RunStore
	commands     Commands
	queries      Queries
	importErr    error
	closers      []func() error
}

// New builds the runtime. The source side must be configured. When the
// target side is incomplete the runtime still lists courses, and Import
// reports the first missing variable.
func New(ctx context.Context, cfg Config, opts ...Option) (*Runtime, error) {
	builder := runtimeBuilder{}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, logger := gologger.Named("", builder.loggerProvider, builder.logger)
	metrics := builder.metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	rt := &Runtime{config: cfg, logger: logger, provider: provider}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	contractModel := builder.contract
	if contractModel == nil {
		loaded, err := contract.Load(cfg.Sync.ContractPath)
		if err != nil {
			return nil, err
		}
		contractModel = loaded
	}

	sourceClient := builder.source
	if sourceClient == nil {
		if err := cfg.RequireListing(); err != nil {
			return nil, err
		}
		built, err := buildSource(cfg, builder.httpClient)
		if err != nil {
			return nil, err
		}
		sourceClient = built
	}

	store := builder.target
	if store == nil {
		if err := cfg.RequireRuntime(); err != nil {
			rt.importErr = err
			store = target.NewMemoryStore()
		} else {
			built, err := rt.buildTarget(ctx, cfg, builder.httpClient)
			if err != nil {
				return nil, err
			}
			store = built
		}
	}

	if dsn := strings.TrimSpace(cfg.Ledger.DSN); dsn != "" {
		runs, err := rt.openRunStore(ctx, cfg, dsn)
		if err != nil {
			return nil, err
		}
		rt.runs = runs
	}
	recorder := builder.recorder
	if recorder == nil && rt.runs != nil {
		recorder = rt.runs
	}

	engine, err := core.NewUpsertEngine(store,
		core.WithUpsertLogger(logger),
		core.WithUpsertMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	reporter, err := core.NewWriteBackReporter(sourceClient,
		core.WithWriteBackLogger(logger),
		core.WithWriteBackMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	mode, valid := contract.ParseMode(cfg.Sync.Mode)
	if !valid {
		return nil, core.NewSyncError(
			fmt.Sprintf("contentsync: unsupported mode %q", cfg.Sync.Mode),
			goerrors.CategoryBadInput,
			core.ConfigErrorInvalid,
			map[string]any{"field": "sync.mode"},
		)
	}
	orchestratorOpts := []syncpkg.Option{
		syncpkg.WithLogger(logger),
		syncpkg.WithMetrics(metrics),
		syncpkg.WithAllowedStatuses(cfg.Sync.AllowedStatuses...),
		syncpkg.WithChildConcurrency(cfg.Sync.ChildConcurrency),
		syncpkg.WithDefaultMode(mode),
		syncpkg.WithClock(builder.now),
	}
	if recorder != nil {
		orchestratorOpts = append(orchestratorOpts, syncpkg.WithRunRecorder(recorder))
	}
	orchestrator, err := syncpkg.NewOrchestrator(syncpkg.Dependencies{
		Contract:    contractModel,
		Transformer: transform.New(transform.DefaultTable()),
		Source:      sourceClient,
		Upserts:     engine,
		WriteBack:   reporter,
		Collections: cfg.Source.Collections,
	}, orchestratorOpts...)
	if err != nil {
		return nil, err
	}
	rt.orchestrator = orchestrator
	rt.commands = Commands{ImportCourse: contentcommand.NewImportCourseCommand(orchestrator)}
	rt.queries = Queries{ListCourses: query.NewListCoursesQuery(orchestrator)}
	if rt.runs != nil {
		rt.queries.ListRuns = query.NewListRunsQuery(rt.runs)
	}
	ok = true
	return rt, nil
}

func buildSource(cfg Config, httpClient transport.HTTPDoer) (source.Client, error) {
	if fixture := strings.TrimSpace(cfg.Source.Fixture); fixture != "" {
		return source.LoadFixture(fixture)
	}
	return source.NewNotionClient(cfg.Source.Token,
		source.WithNotionBaseURL(cfg.Source.BaseURL),
		source.WithNotionTimeout(cfg.Sync.HTTPTimeout),
		source.WithNotionHTTPClient(httpClient),
	)
}

func (rt *Runtime) buildTarget(ctx context.Context, cfg Config, httpClient transport.HTTPDoer) (target.Store, error) {
	if cfg.TargetBackend() == core.TargetBackendSQL {
		client, err := rt.openPersistence(ctx, cfg, cfg.Target.DSN)
		if err != nil {
			return nil, err
		}
		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			return nil, err
		}
		if ledger := strings.TrimSpace(cfg.Ledger.DSN); ledger == "" || ledger == strings.TrimSpace(cfg.Target.DSN) {
			rt.runs = factory.RunStore()
		}
		return factory.ContentStore(), nil
	}
	return target.NewStrapiClient(cfg.Target.URL, cfg.Target.Token,
		target.WithStrapiTimeout(cfg.Sync.HTTPTimeout),
		target.WithStrapiHTTPClient(httpClient),
	)
}

func (rt *Runtime) openRunStore(ctx context.Context, cfg Config, dsn string) (*sqlstore.RunStore, error) {
	if rt.runs != nil {
		return rt.runs, nil
	}
	client, err := rt.openPersistence(ctx, cfg, dsn)
	if err != nil {
		return nil, err
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return nil, err
	}
	return factory.RunStore(), nil
}

func (rt *Runtime) openPersistence(ctx context.Context, cfg Config, dsn string) (*persistence.Client, error) {
	client, err := sqlstore.Open(ctx, dsn, sqlstore.WithDebug(cfg.Sync.Debug))
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Close)
	return client, nil
}

// Import runs one course import through the import command.
func (rt *Runtime) Import(ctx context.Context, req ImportRequest) (Report, error) {
	if rt == nil || rt.commands.ImportCourse == nil {
		return Report{}, fmt.Errorf("contentsync: runtime is not initialized")
	}
	if rt.importErr != nil {
		return Report{}, rt.importErr
	}
	collector := gocmd.NewResult[Report]()
	err := rt.commands.ImportCourse.Execute(gocmd.ContextWithResult(ctx, collector), contentcommand.ImportCourseMessage{Request: req})
	report, _ := collector.Load()
	return report, err
}

func (rt *Runtime) ListCourses(ctx context.Context) ([]CourseSummary, error) {
	if rt == nil {
		return nil, fmt.Errorf("contentsync: runtime is not initialized")
	}
	return rt.queries.ListCourses.Query(ctx, query.ListCoursesMessage{})
}

func (rt *Runtime) ListRuns(ctx context.Context, msg query.ListRunsMessage) (RunPage, error) {
	if rt == nil {
		return RunPage{}, fmt.Errorf("contentsync: runtime is not initialized")
	}
	return rt.queries.ListRuns.Query(ctx, msg)
}

func (rt *Runtime) Commands() Commands {
	if rt == nil {
		return Commands{}
	}
	return rt.commands
}

func (rt *Runtime) Queries() Queries {
	if rt == nil {
		return Queries{}
	}
	return rt.queries
}

// Subscribe registers the runtime's handlers on bus so imports and queries
// can go through the go-command dispatcher. Callers own bus.Close.
func (rt *Runtime) Subscribe(bus *gocommand.Bus, runnerOpts ...runner.Option) error {
	if rt == nil {
		return errors.New("contentsync: runtime is nil")
	}
	return bus.Register(gocommand.Handlers{
		ImportCourse: rt.commands.ImportCourse,
		ListCourses:  rt.queries.ListCourses,
		ListRuns:     rt.queries.ListRuns,
	}, runnerOpts...)
}

// EnqueueImport validates req and publishes it as a go-job execution
// message. Duplicate requests share an idempotency key.
func (rt *Runtime) EnqueueImport(ctx context.Context, enqueuer queue.Enqueuer, req ImportRequest) (queue.EnqueueReceipt, error) {
	if rt == nil {
		return queue.EnqueueReceipt{}, errors.New("contentsync: runtime is nil")
	}
	return gojob.NewImportEnqueuer(enqueuer).EnqueueImport(ctx, req)
}

// QueueHandler runs queued imports through Import. A runtime without a
// configured target nacks every delivery under policy.
func (rt *Runtime) QueueHandler(policy gojob.RetryPolicy) *gojob.ImportHandler {
	if rt == nil {
		return gojob.NewImportHandler(nil, policy, nil)
	}
	_, logger := gologger.Named("queue", rt.loggerProvider(), rt.logger)
	return gojob.NewImportHandler(runtimeImporter{rt: rt}, policy, logger)
}

// ProcessQueuedImport dequeues one import and runs it, acking or nacking
// the delivery.
func (rt *Runtime) ProcessQueuedImport(ctx context.Context, dequeuer queue.Dequeuer, policy gojob.RetryPolicy, attempt int) (Report, error) {
	if rt == nil {
		return Report{}, errors.New("contentsync: runtime is nil")
	}
	return rt.QueueHandler(policy).ProcessNext(ctx, dequeuer, attempt)
}

// WorkerOptions are go-job worker options that log through the runtime's
// logger under contentsync.queue.
func (rt *Runtime) WorkerOptions() []worker.Option {
	if rt == nil {
		return nil
	}
	_, jobLogger := gologger.JobLoggers("queue", rt.loggerProvider(), rt.logger)
	_, logger := gologger.Named("queue", rt.loggerProvider(), rt.logger)
	return []worker.Option{
		worker.WithLogger(jobLogger),
		worker.WithHooks(gojob.NewLoggingHook(logger)),
	}
}

func (rt *Runtime) loggerProvider() core.LoggerProvider {
	return rt.provider
}

type runtimeImporter struct {
	rt *Runtime
}

func (i runtimeImporter) Run(ctx context.Context, req ImportRequest) (Report, error) {
	return i.rt.Import(ctx, req)
}

func (rt *Runtime) Orchestrator() *syncpkg.Orchestrator {
	if rt == nil {
		return nil
	}
	return rt.orchestrator
}

func (rt *Runtime) Config() Config {
	if rt == nil {
		return Config{}
	}
	return rt.config
}

// Close releases database connections opened by New, in reverse order.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Ledger is a read-only view over the run ledger for callers that do not
// need a source or target.
type Ledger struct {
	runs   *query.ListRunsQuery
	client *persistence.Client
}

// OpenLedger connects to cfg.Ledger.DSN. A sql target backend keeps its runs
// in the target database, so its DSN is the fallback.
func OpenLedger(ctx context.Context, cfg Config) (*Ledger, error) {
	dsn := strings.TrimSpace(cfg.Ledger.DSN)
	if dsn == "" && cfg.TargetBackend() == core.TargetBackendSQL {
		dsn = strings.TrimSpace(cfg.Target.DSN)
	}
	if dsn == "" {
		return nil, core.NewSyncError(
			fmt.Sprintf("contentsync: %s is not set", core.EnvLedgerDSN),
			goerrors.CategoryBadInput,
			core.ConfigErrorMissingVariable,
			map[string]any{"variable": core.EnvLedgerDSN, "field": "ledger.dsn"},
		)
	}
	client, err := sqlstore.Open(ctx, dsn, sqlstore.WithDebug(cfg.Sync.Debug))
	if err != nil {
		return nil, err
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Ledger{runs: query.NewListRunsQuery(factory.RunStore()), client: client}, nil
}

func (l *Ledger) ListRuns(ctx context.Context, msg query.ListRunsMessage) (RunPage, error) {
	if l == nil {
		return RunPage{}, fmt.Errorf("contentsync: ledger is not open")
	}
	return l.runs.Query(ctx, msg)
}

func (l *Ledger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
