package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/trip-planner/pkg/admin"
	"github.com/txn2/trip-planner/pkg/audit"
	auditpostgres "github.com/txn2/trip-planner/pkg/audit/postgres"
	"github.com/txn2/trip-planner/pkg/database/migrate"
	"github.com/txn2/trip-planner/pkg/health"
	"github.com/txn2/trip-planner/pkg/mcptools"
	"github.com/txn2/trip-planner/pkg/search"
	"github.com/txn2/trip-planner/pkg/upstream"
	"github.com/txn2/trip-planner/pkg/upstream/fallback"
	"github.com/txn2/trip-planner/pkg/upstream/livequote"
	"github.com/txn2/trip-planner/pkg/upstream/synthetic"
)

const auditCleanupInterval = time.Hour

// Platform is the main service facade.
type Platform struct {
	config    *Config
	version   string
	lifecycle *Lifecycle

	db     *sql.DB
	ownsDB bool

	provider     upstream.Provider
	manager      *search.Manager
	auditLogger  audit.Logger
	auditQuerier audit.Querier
	auditStore   *auditpostgres.Store

	health    *health.Checker
	mcpServer *mcp.Server
}

// New creates a new platform instance. The session manager and its sweeper
// are running when New returns; Start brings up the database side.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}
	if options.Version == "" {
		options.Version = "dev"
	}

	p := &Platform{
		config:    options.Config,
		version:   options.Version,
		lifecycle: NewLifecycle(),
		health:    health.NewChecker(),
	}

	if err := p.initializeComponents(options); err != nil {
		if p.ownsDB {
			_ = p.db.Close()
		}
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	p.initAudit(opts)
	if err := p.initProvider(opts); err != nil {
		return err
	}
	if err := p.initSearch(opts); err != nil {
		return err
	}
	if p.config.MCP.Enabled {
		p.mcpServer = mcptools.NewServer(p.config.Server.Name, p.version, p.manager)
		p.registerInfoTool()
	}
	return nil
}

// initDatabase opens the audit database when one is configured.
func (p *Platform) initDatabase(opts *Options) error {
	switch {
	case opts.DB != nil:
		p.db = opts.DB
	case p.config.Database.DSN != "":
		db, err := sql.Open("postgres", p.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
		p.db = db
		p.ownsDB = true
	default:
		return nil
	}

	p.lifecycle.OnStart("database", func(ctx context.Context) error {
		if err := p.db.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}
		return migrate.Run(p.db)
	})
	p.health.AddCheck("database", p.db.PingContext)
	return nil
}

// initAudit picks where search events go: PostgreSQL when a database is
// available, the structured log otherwise.
func (p *Platform) initAudit(opts *Options) {
	switch {
	case opts.AuditLogger != nil:
		p.auditLogger = opts.AuditLogger
		p.auditQuerier = opts.AuditQuerier
	case !p.config.Audit.Enabled:
		p.auditLogger = audit.NoopLogger{}
	case p.db != nil:
		p.auditStore = auditpostgres.New(p.db, auditpostgres.Config{RetentionDays: p.config.Audit.RetentionDays})
		p.auditLogger = p.auditStore
		p.auditQuerier = p.auditStore
		p.lifecycle.Append("audit",
			func(context.Context) error {
				p.auditStore.StartCleanupRoutine(auditCleanupInterval)
				return nil
			},
			func(context.Context) error { return p.auditStore.Close() },
		)
	default:
		p.auditLogger = audit.NewSlogLogger(slog.Default())
	}
}

// initProvider creates the upstream provider named in the config.
func (p *Platform) initProvider(opts *Options) error {
	if opts.Provider != nil {
		p.provider = opts.Provider
		return nil
	}

	up := p.config.Upstream
	switch up.Provider {
	case ProviderLiveQuote:
		client, err := livequote.New(livequote.Config{
			BaseURL:  up.BaseURL,
			APIKey:   up.APIKey,
			Timeout:  up.Timeout,
			Market:   up.Market,
			Locale:   up.Locale,
			Currency: up.Currency,
		})
		if err != nil {
			return fmt.Errorf("creating livequote provider: %w", err)
		}
		p.provider = client
		if !up.DisableFallback {
			p.provider = fallback.New(client, p.syntheticProvider(opts))
		}
	default:
		slog.Info("no upstream credentials configured, serving synthetic flight data")
		p.provider = p.syntheticProvider(opts)
	}
	return nil
}

func (p *Platform) syntheticProvider(opts *Options) *synthetic.Provider {
	return synthetic.New(synthetic.Config{
		Batches:   p.config.Upstream.Batches,
		Currency:  p.config.Upstream.Currency,
		Retention: p.config.Search.Retention,
		Now:       opts.Now,
	})
}

// initSearch creates the session manager, which starts its sweeper.
func (p *Platform) initSearch(opts *Options) error {
	m, err := search.NewManager(search.Config{
		Provider:      p.provider,
		Audit:         p.auditLogger,
		Retention:     p.config.Search.Retention,
		SweepInterval: p.config.Search.SweepInterval,
		Now:           opts.Now,
	})
	if err != nil {
		return fmt.Errorf("creating search manager: %w", err)
	}
	p.manager = m
	p.lifecycle.RegisterCloser("search", m)
	p.health.SetSessionCounter(m.Len)
	return nil
}

// Start brings up the database, runs migrations and marks the service ready.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	p.health.SetReady()
	slog.Info("platform started", "provider", p.provider.Name(), "audit_db", p.db != nil)
	return nil
}

// Stop marks the service as draining and stops every component.
func (p *Platform) Stop(ctx context.Context) error {
	p.health.SetDraining()
	if err := p.lifecycle.Stop(ctx); err != nil {
		return fmt.Errorf("stopping platform: %w", err)
	}
	return nil
}

// Close stops the platform if it is running and releases the database
// connection it opened. The session manager is closed by the lifecycle when
// the platform was started and directly otherwise.
func (p *Platform) Close() error {
	started := p.lifecycle.IsStarted()
	errs := []error{p.lifecycle.Stop(context.Background())}
	if !started {
		errs = append(errs, p.manager.Close())
	}
	if p.ownsDB {
		errs = append(errs, p.db.Close())
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP routes served by the platform.
func (p *Platform) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(search.Path, search.NewHandler(p.manager))
	mux.Handle("GET /healthz", p.health.LivenessHandler())
	mux.Handle("GET /readyz", p.health.ReadinessHandler())

	if p.config.Admin.Enabled {
		mux.Handle("/api/v1/admin/", admin.NewHandler(admin.Deps{
			Sessions:     p.manager,
			AuditQuerier: p.auditQuerier,
		}))
	}
	if p.mcpServer != nil {
		mux.Handle(p.config.MCP.Path, mcptools.NewHandler(p.mcpServer))
	}
	return mux
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config { return p.config }

// Manager returns the search session manager.
func (p *Platform) Manager() *search.Manager { return p.manager }

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker { return p.health }

// MCPServer returns the MCP server, or nil when disabled.
func (p *Platform) MCPServer() *mcp.Server { return p.mcpServer }

// AuditQuerier returns the search history store, or nil without a database.
func (p *Platform) AuditQuerier() audit.Querier { return p.auditQuerier }

// DB returns the database connection, or nil.
func (p *Platform) DB() *sql.DB { return p.db }
