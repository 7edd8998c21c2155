// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = "config/.env"

// NewConfig loads configuration from environment using viper with typed
// defaults and validation. The report tables (stage order, cycle-time rows,
// metrics queries) default to the standard engineering-insights setup and
// can be overridden per deployment.
func NewConfig() (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("http.request_timeout", 60*time.Second)

	v.SetDefault("ledger.backend", "sheets")
	v.SetDefault("sheets.credentials_file", "google-credentials.json")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db_name", "sdlc_metrics_db")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.migrations_dir", "db/migrations")
	v.SetDefault("postgres.migrate_timeout", 10*time.Second)
	v.SetDefault("postgres.query_timeout", 5*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("jira.project", "Insights")
	v.SetDefault("jira.page_size", 1000)
	v.SetDefault("github.page_size", 100)
	v.SetDefault("semaphore.main_branch_only", true)

	v.SetDefault("report.alias_ttl", 10*time.Minute)
	v.SetDefault("report.stage_order", defaultStageOrder)
	v.SetDefault("report.cycle_time", defaultCycleTimeRows)
	v.SetDefault("report.ic_completions", defaultICSheets)
	v.SetDefault("report.metrics_queries", defaultMetricsQueries)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"http.request_timeout",
		"ledger.backend",
		"sheets.credentials_file",
		"sheets.spreadsheet_id",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.db_name",
		"postgres.ssl_mode",
		"postgres.migrations_dir",
		"postgres.migrate_timeout",
		"postgres.query_timeout",
		"postgres.max_conns",
		"postgres.min_conns",
		"jira.url",
		"jira.email",
		"jira.api_token",
		"jira.project",
		"jira.page_size",
		"github.token",
		"github.org",
		"github.page_size",
		"semaphore.api_token",
		"semaphore.org_name",
		"semaphore.main_branch_only",
		"zoom.account_id",
		"zoom.client_id",
		"zoom.client_secret",
		"report.alias_ttl",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// defaultStageOrder is the issue lifecycle including stages inherited from
// migrated projects and retired workflows. Transitions referencing a stage
// outside this list are a configuration error.
var defaultStageOrder = []string{
	"Design Complete",
	"Backlog",
	"Triage",
	"Waiting for support",
	"Open",
	"Ready for Grooming",
	"Groomed",
	"In Progress",
	"In Review",
	"Review",
	"Merged",
	"Deploy",
	"In Test",
	"Awaiting Approval",
	"Closed",
	"Done",
	"Declined",
}

var defaultCycleTimeRows = []map[string]any{
	{
		"row_name":    "Bug Resolution Time",
		"issue_types": []string{"bug"},
		"labels":      []string{},
		"start_stage": "Triage",
		"end_stage":   "Merged",
	},
	{
		"row_name":    "Support Bug Resolution Time",
		"issue_types": []string{"bug"},
		"labels":      []string{"jira_escalated", "support"},
		"start_stage": "Triage",
		"end_stage":   "Merged",
	},
	{
		"row_name":    "Design Time (Stories, Epics)",
		"issue_types": []string{"story", "epic"},
		"labels":      []string{},
		"start_stage": "Open",
		"end_stage":   "In Progress",
	},
	{
		"row_name":    "Completion Time (Stories, Epics)",
		"issue_types": []string{"story", "epic"},
		"labels":      []string{},
		"start_stage": "In Progress",
		"end_stage":   "Merged",
	},
	{
		"row_name":    "Verification Time",
		"issue_types": []string{"story", "epic", "bug"},
		"labels":      []string{},
		"start_stage": "Merged",
		"end_stage":   "Closed",
	},
}

// defaultICSheets maps issue selections onto the per-engineer completion
// sheets: one sheet per issue family, plus the escalated-bug slice.
var defaultICSheets = []map[string]any{
	{"sheet_name": "Stories", "issue_types": []string{"story"}, "labels": []string{}},
	{"sheet_name": "Epics", "issue_types": []string{"epic"}, "labels": []string{}},
	{"sheet_name": "Bugs", "issue_types": []string{"bug"}, "labels": []string{}},
	{"sheet_name": "Tasks", "issue_types": []string{"task", "subtask", "sub-task"}, "labels": []string{}},
	{"sheet_name": "Support Bugs", "issue_types": []string{"bug"}, "labels": []string{"jira_escalated", "support"}},
}

var defaultMetricsQueries = map[string]string{
	"Issues completed": `filter = "Filter for Insights" AND status changed TO ("Merged", "Awaiting Approval", "Closed") AFTER startOfMonth(-1) AND status changed TO ("Merged", "Awaiting Approval", "Closed") BEFORE endOfMonth(-1) AND type in (Bug, Story, Epic, Task, Sub-task)`,
	"Epics completed":  `filter = "Filter for Insights" AND status changed TO ("Merged", "Awaiting Approval", "Closed") AFTER startOfMonth(-1) AND status changed TO ("Merged", "Awaiting Approval", "Closed") BEFORE endOfMonth(-1) AND type in (Epic)`,
	"Stories completed": `filter = "Filter for Insights" AND status changed TO ("Merged", "Awaiting Approval", "Closed") AFTER startOfMonth(-1) AND status changed TO ("Merged", "Awaiting Approval", "Closed") BEFORE endOfMonth(-1) AND type in (Story)`,
	"Defects completed": `filter = "Filter for Insights" AND status changed TO ("Merged", "Awaiting Approval", "Closed") AFTER startOfMonth(-1) AND status changed TO ("Merged", "Awaiting Approval", "Closed") BEFORE endOfMonth(-1) AND type in (Bug)`,
	"Number of Defects Open":    `filter = "Filter for Insights" AND type in (Bug) AND status in (Triage, Open, "In Progress", "In Review")`,
	"Number of Defects created": `filter = "Filter for Insights" AND type in (Bug) AND createdDate >= startOfMonth(-1) AND createdDate <= endOfMonth(-1)`,
}
