package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	fr "toggl-freee/internal/adapter/freee"
	msql "toggl-freee/internal/adapter/mysql"
	"toggl-freee/internal/adapter/oauth"
	"toggl-freee/internal/adapter/postgres"
	"toggl-freee/internal/adapter/sqlite"
	"toggl-freee/internal/adapter/sqltable"
	tg "toggl-freee/internal/adapter/toggl"
	"toggl-freee/internal/adapter/xlsx"
	"toggl-freee/internal/config"
	"toggl-freee/internal/domain"
	"toggl-freee/internal/migrate"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/usecase"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("pipeline run already in progress")

// RunError ties a failed run to the run_id its log lines carry.
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string { return fmt.Sprintf("run %s: %v", e.RunID, e.Err) }

func (e *RunError) Unwrap() error { return e.Err }

// Result summarises a completed run.
type Result struct {
	RunID string `json:"run_id"`
	Table string `json:"table"`
	Rows  int    `json:"rows"` // data rows written or submitted, header excluded
}

// Status describes the freee session.
type Status struct {
	FreeeSession bool   `json:"freee_session"`
	User         string `json:"user,omitempty"`
}

// App wires adapters and use cases.
type App struct {
	log    *slog.Logger
	cfg    config.Config
	loc    *time.Location
	toggl  ports.TogglClient
	freee  ports.FreeeClient
	tables ports.TableStore
	close  func() error

	// mu serialises pipeline runs; a second caller gets ErrBusy.
	mu sync.Mutex
}

func New(log *slog.Logger, cfg config.Config) (*App, error) {
	ctx := context.Background()
	toggl := tg.NewClient(cfg.Toggl.BaseURL, tg.NewAPITokenSession(cfg.Toggl.APIToken), log)
	session := oauth.NewSession(oauth.Config{
		ClientID:     cfg.Freee.ClientID,
		ClientSecret: cfg.Freee.ClientSecret,
		AuthURL:      cfg.Freee.AuthURL,
		TokenURL:     cfg.Freee.TokenURL,
		AccessToken:  cfg.Freee.AccessToken,
		RefreshToken: cfg.Freee.RefreshToken,
		Expiry:       cfg.Freee.TokenExpiry,
	}, log)
	freee := fr.NewClient(cfg.Freee.BaseURL, session, log)

	tables, closeTables, err := openTables(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a, err := newApp(log, cfg, toggl, freee, tables)
	if err != nil {
		_ = closeTables()
		return nil, err
	}
	a.close = closeTables
	return a, nil
}

func newApp(log *slog.Logger, cfg config.Config, toggl ports.TogglClient, freee ports.FreeeClient, tables ports.TableStore) (*App, error) {
	loc, err := time.LoadLocation(cfg.Freee.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load FREEE_TZ: %w", err)
	}
	return &App{
		log:    log,
		cfg:    cfg,
		loc:    loc,
		toggl:  toggl,
		freee:  freee,
		tables: tables,
		close:  func() error { return nil },
	}, nil
}

// openTables picks the table store for the configured backend. SQL backends
// are migrated before use.
func openTables(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.TableStore, func() error, error) {
	switch cfg.Tables.Backend {
	case config.BackendMySQL:
		db, err := msql.Open(ctx, cfg.Tables.MySQLDSN, log)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Run(ctx, db, migrate.MySQL, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		s := sqltable.New(db, log)
		return s, s.Close, nil
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Tables.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Run(ctx, db, migrate.SQLite, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		s := sqltable.New(db, log)
		return s, s.Close, nil
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.Tables.PostgresDSN, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		log.Info("using workbook table store", slog.String("path", cfg.Tables.XLSXPath))
		return xlsx.NewStore(cfg.Tables.XLSXPath, log), func() error { return nil }, nil
	}
}

// Close releases the table store.
func (a *App) Close() error { return a.close() }

// run executes fn under the run lock with a fresh run_id on every log line.
func (a *App) run(ctx context.Context, op string, fn func(ctx context.Context, log *slog.Logger, res *Result) error) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	if !a.mu.TryLock() {
		return res, &RunError{RunID: res.RunID, Err: ErrBusy}
	}
	defer a.mu.Unlock()

	log := a.log.With(slog.String("run_id", res.RunID), slog.String("op", op))
	start := time.Now()
	log.Info("run started")
	if err := fn(ctx, log, &res); err != nil {
		log.Error("run failed", slog.String("error", err.Error()), slog.Duration("dur", time.Since(start)))
		return res, &RunError{RunID: res.RunID, Err: err}
	}
	log.Info("run completed", slog.String("table", res.Table), slog.Int("rows", res.Rows), slog.Duration("dur", time.Since(start)))
	return res, nil
}

// RunReport assembles the month's report and writes it to the report table.
func (a *App) RunReport(ctx context.Context, year int, month time.Month) (Result, error) {
	return a.run(ctx, "report", func(ctx context.Context, log *slog.Logger, res *Result) error {
		ws, err := a.workspaceID(ctx, log)
		if err != nil {
			return err
		}
		catalogs := &usecase.CatalogResolver{Log: log, Source: a.toggl}
		assembler := &usecase.ReportAssembler{
			Log:           log,
			Paginator:     usecase.NewReportPaginator(log, a.toggl),
			Catalogs:      catalogs,
			Tables:        a.tables,
			CrossMapTable: a.cfg.Tables.CrossMap,
		}
		t, err := assembler.Assemble(ctx, ws, year, month)
		if err != nil {
			return err
		}
		res.Table, res.Rows = a.cfg.Tables.Report, t.Len()
		return a.tables.WriteTable(ctx, res.Table, t)
	})
}

// ExportTaxonomy writes freee's project / tag tree to the taxonomy table.
func (a *App) ExportTaxonomy(ctx context.Context) (Result, error) {
	return a.run(ctx, "taxonomy", func(ctx context.Context, log *slog.Logger, res *Result) error {
		company, err := a.companyID(ctx, log)
		if err != nil {
			return err
		}
		exporter := &usecase.TaxonomyExporter{Log: log, Source: a.freee}
		t, err := exporter.Export(ctx, company)
		if err != nil {
			return err
		}
		res.Table, res.Rows = a.cfg.Tables.Taxonomy, t.Len()
		return a.tables.WriteTable(ctx, res.Table, t)
	})
}

// ExportTogglTaxonomy writes the workspace's projects and tags to the Toggl
// taxonomy table.
func (a *App) ExportTogglTaxonomy(ctx context.Context) (Result, error) {
	return a.run(ctx, "toggl-taxonomy", func(ctx context.Context, log *slog.Logger, res *Result) error {
		ws, err := a.workspaceID(ctx, log)
		if err != nil {
			return err
		}
		catalogs := &usecase.CatalogResolver{Log: log, Source: a.toggl}
		t, err := catalogs.ExportTaxonomy(ctx, ws)
		if err != nil {
			return err
		}
		res.Table, res.Rows = a.cfg.Tables.TogglTaxonomy, t.Len()
		return a.tables.WriteTable(ctx, res.Table, t)
	})
}

// Submit registers every row of the named table as a freee workload. An
// empty name submits the report table.
func (a *App) Submit(ctx context.Context, tableName string) (Result, error) {
	if tableName == "" {
		tableName = a.cfg.Tables.Report
	}
	return a.run(ctx, "submit", func(ctx context.Context, log *slog.Logger, res *Result) error {
		res.Table = tableName
		if !a.freee.HasValidSession(ctx) {
			return domain.ErrNoSession
		}
		company, err := a.companyID(ctx, log)
		if err != nil {
			return err
		}
		t, err := a.tables.ReadTable(ctx, tableName)
		if err != nil {
			return fmt.Errorf("read %s: %w", tableName, err)
		}
		recs, err := usecase.SubmissionRecords(t)
		if err != nil {
			return fmt.Errorf("%s: %w", tableName, err)
		}
		submitter := &usecase.WorkEntrySubmitter{Log: log, Sink: a.freee, Location: a.loc}
		n, err := submitter.Submit(ctx, company, recs)
		res.Rows = n
		return err
	})
}

// Workspaces lists the Toggl workspaces the API token can see.
func (a *App) Workspaces(ctx context.Context) ([]domain.Workspace, error) {
	return (&usecase.CatalogResolver{Log: a.log, Source: a.toggl}).Workspaces(ctx)
}

// Companies lists the freee companies the session belongs to.
func (a *App) Companies(ctx context.Context) ([]domain.Company, error) {
	return a.freee.ListCompanies(ctx)
}

// Status reports whether freee requests can be authorised, and as whom.
func (a *App) Status(ctx context.Context) (Status, error) {
	if !a.freee.HasValidSession(ctx) {
		return Status{}, nil
	}
	u, err := a.freee.CurrentUser(ctx)
	if err != nil {
		return Status{}, err
	}
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	return Status{FreeeSession: true, User: name}, nil
}

// workspaceID returns the configured workspace, or the first one the token
// can see when none is configured.
func (a *App) workspaceID(ctx context.Context, log *slog.Logger) (int64, error) {
	if a.cfg.Toggl.WorkspaceID != 0 {
		return a.cfg.Toggl.WorkspaceID, nil
	}
	ws, err := a.toggl.ListWorkspaces(ctx)
	if err != nil {
		return 0, err
	}
	if len(ws) == 0 {
		return 0, errors.New("toggl: no workspace visible to the API token")
	}
	log.Warn("TOGGL_WORKSPACE_ID not set; using first workspace", slog.Int64("workspace_id", ws[0].ID), slog.String("name", ws[0].Name))
	return ws[0].ID, nil
}

// companyID mirrors workspaceID for freee.
func (a *App) companyID(ctx context.Context, log *slog.Logger) (int64, error) {
	if a.cfg.Freee.CompanyID != 0 {
		return a.cfg.Freee.CompanyID, nil
	}
	cs, err := a.freee.ListCompanies(ctx)
	if err != nil {
		return 0, err
	}
	if len(cs) == 0 {
		return 0, errors.New("freee: no company visible to the session")
	}
	log.Warn("FREEE_COMPANY_ID not set; using first company", slog.Int64("company_id", cs[0].ID), slog.String("name", cs[0].Name))
	return cs[0].ID, nil
}

// ParseMonth reads a "YYYY-MM" month. An empty value means the month now
// falls in, in loc.
func ParseMonth(v string, now time.Time, loc *time.Location) (int, time.Month, error) {
	if v == "" {
		n := now.In(loc)
		return n.Year(), n.Month(), nil
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM", v)
	}
	return t.Year(), t.Month(), nil
}

// Location is the zone workload dates and default months are expressed in.
func (a *App) Location() *time.Location { return a.loc }
