package config

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// Config holds application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Jira      JiraConfig      `mapstructure:"jira"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Semaphore SemaphoreConfig `mapstructure:"semaphore"`
	Zoom      ZoomConfig      `mapstructure:"zoom"`
	Report    ReportConfig    `mapstructure:"report"`
}

// Validate ensures the structural configuration is coherent. Source
// credentials are checked by the source clients that need them, so a job
// can run without the credentials of the jobs it does not touch.
func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case "sheets":
		if c.Sheets.CredentialsFile == "" || c.Sheets.SpreadsheetID == "" {
			return errors.Mark(errors.New("sheets.credentials_file and sheets.spreadsheet_id are required"), entities.ErrConfiguration)
		}
	case "postgres":
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
			return errors.Mark(errors.New("postgres credentials are required"), entities.ErrConfiguration)
		}
	default:
		return errors.Mark(errors.Newf("unknown ledger backend %q", c.Ledger.Backend), entities.ErrConfiguration)
	}

	if len(c.Report.StageOrder) == 0 {
		return errors.Mark(errors.New("report.stage_order is empty"), entities.ErrConfiguration)
	}
	known := make(map[string]struct{}, len(c.Report.StageOrder))
	for _, s := range c.Report.StageOrder {
		known[s] = struct{}{}
	}
	for _, row := range c.Report.CycleTime {
		if row.RowName == "" || len(row.IssueTypes) == 0 {
			return errors.Mark(errors.Newf("cycle time row %q is incomplete", row.RowName), entities.ErrConfiguration)
		}
		for _, stage := range []string{row.StartStage, row.EndStage} {
			if _, ok := known[stage]; !ok {
				return errors.Mark(errors.Newf("cycle time row %q references stage %q absent from report.stage_order", row.RowName, stage), entities.ErrConfiguration)
			}
		}
	}
	for _, sheet := range c.Report.ICCompletions {
		if sheet.SheetName == "" || len(sheet.IssueTypes) == 0 {
			return errors.Mark(errors.Newf("ic completion sheet %q is incomplete", sheet.SheetName), entities.ErrConfiguration)
		}
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig contains admin HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LedgerConfig selects the tabular store backend.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
}

// SheetsConfig describes the Google Sheets ledger.
type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
}

// PostgresConfig describes the warehouse ledger connection.
type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MigrationsDir  string        `mapstructure:"migrations_dir"`
	MigrateTimeout time.Duration `mapstructure:"migrate_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
}

// DSN returns a Postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// JiraConfig describes the Jira Cloud connection and query scope.
type JiraConfig struct {
	URL      string `mapstructure:"url"`
	Email    string `mapstructure:"email"`
	APIToken string `mapstructure:"api_token"`
	Project  string `mapstructure:"project"`
	PageSize int    `mapstructure:"page_size"`
}

// GitHubConfig describes the GitHub API connection.
type GitHubConfig struct {
	Token    string `mapstructure:"token"`
	Org      string `mapstructure:"org"`
	PageSize int    `mapstructure:"page_size"`
}

// SemaphoreConfig describes the Semaphore CI API connection.
type SemaphoreConfig struct {
	APIToken       string `mapstructure:"api_token"`
	OrgName        string `mapstructure:"org_name"`
	MainBranchOnly bool   `mapstructure:"main_branch_only"`
}

// ZoomConfig describes the Zoom server-to-server OAuth app.
type ZoomConfig struct {
	AccountID    string `mapstructure:"account_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// CycleTimeRowConfig configures one row of the cycle-time sheet: which
// issues to select and which stage interval to measure for them.
type CycleTimeRowConfig struct {
	RowName    string   `mapstructure:"row_name"`
	IssueTypes []string `mapstructure:"issue_types"`
	Labels     []string `mapstructure:"labels"`
	StartStage string   `mapstructure:"start_stage"`
	EndStage   string   `mapstructure:"end_stage"`
}

// ICSheetConfig configures one per-engineer completion sheet: which issue
// selection feeds it.
type ICSheetConfig struct {
	SheetName  string   `mapstructure:"sheet_name"`
	IssueTypes []string `mapstructure:"issue_types"`
	Labels     []string `mapstructure:"labels"`
}

// ReportConfig carries the per-job query and label tables, validated at
// load time instead of accessed by ad hoc key lookup.
type ReportConfig struct {
	StageOrder     []string             `mapstructure:"stage_order"`
	CycleTime      []CycleTimeRowConfig `mapstructure:"cycle_time"`
	ICCompletions  []ICSheetConfig      `mapstructure:"ic_completions"`
	MetricsQueries map[string]string    `mapstructure:"metrics_queries"`
	AliasTTL       time.Duration        `mapstructure:"alias_ttl"`
}
