package core

import (
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TargetBackendStrapi = "strapi"
	TargetBackendSQL    = "sql"
)

type CollectionsConfig struct {
	Courses     string `koanf:"courses" mapstructure:"courses"`
	Lessons     string `koanf:"lessons" mapstructure:"lessons"`
	Assignments string `koanf:"assignments" mapstructure:"assignments"`
	Resources   string `koanf:"resources" mapstructure:"resources"`
}

type SourceConfig struct {
	Token       string            `koanf:"token" mapstructure:"token"`
	BaseURL     string            `koanf:"base_url" mapstructure:"base_url"`
	Fixture     string            `koanf:"fixture" mapstructure:"fixture"`
	Collections CollectionsConfig `koanf:"collections" mapstructure:"collections"`
}

type TargetConfig struct {
	Backend string `koanf:"backend" mapstructure:"backend"`
	URL     string `koanf:"url" mapstructure:"url"`
	Token   string `koanf:"token" mapstructure:"token"`
	DSN     string `koanf:"dsn" mapstructure:"dsn"`
}

type LedgerConfig struct {
	DSN string `koanf:"dsn" mapstructure:"dsn"`
}

type SyncConfig struct {
	ContractPath     string        `koanf:"contract_path" mapstructure:"contract_path"`
	Mode             string        `koanf:"mode" mapstructure:"mode"`
	AllowedStatuses  []string      `koanf:"allowed_statuses" mapstructure:"allowed_statuses"`
	ChildConcurrency int           `koanf:"child_concurrency" mapstructure:"child_concurrency"`
	HTTPTimeout      time.Duration `koanf:"http_timeout" mapstructure:"http_timeout"`
	Debug            bool          `koanf:"debug" mapstructure:"debug"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	Source      SourceConfig `koanf:"source" mapstructure:"source"`
	Target      TargetConfig `koanf:"target" mapstructure:"target"`
	Ledger      LedgerConfig `koanf:"ledger" mapstructure:"ledger"`
	Sync        SyncConfig   `koanf:"sync" mapstructure:"sync"`
}

func DefaultAllowedStatuses() []string {
	return []string{"Ready", "Synced", "Published"}
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "contentsync",
		Target: TargetConfig{
			Backend: TargetBackendStrapi,
		},
		Sync: SyncConfig{
			Mode:             "IMPORT",
			AllowedStatuses:  DefaultAllowedStatuses(),
			ChildConcurrency: 1,
			HTTPTimeout:      30 * time.Second,
		},
	}
}

// Validate checks structural settings only. Credentials are checked by
// RequireRuntime so that --help and --history work without them.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Target.Backend)) {
	case "", TargetBackendStrapi, TargetBackendSQL:
	default:
		return NewSyncError(
			fmt.Sprintf("core: unsupported target backend %q", c.Target.Backend),
			goerrors.CategoryBadInput,
			ConfigErrorInvalid,
			map[string]any{"field": "target.backend"},
		)
	}
	if c.Sync.ChildConcurrency < 0 {
		return NewSyncError("core: sync.child_concurrency must not be negative", goerrors.CategoryBadInput, ConfigErrorInvalid, map[string]any{"field": "sync.child_concurrency"})
	}
	if c.Sync.HTTPTimeout < 0 {
		return NewSyncError("core: sync.http_timeout must not be negative", goerrors.CategoryBadInput, ConfigErrorInvalid, map[string]any{"field": "sync.http_timeout"})
	}
	return nil
}

// RequireRuntime checks that every variable an import run needs is present
// and names the first missing one.
func (c Config) RequireRuntime() error {
	type requirement struct {
		value    string
		variable string
		field    string
	}
	var required []requirement
	if strings.TrimSpace(c.Source.Fixture) == "" {
		required = append(required, requirement{c.Source.Token, EnvSourceToken, "source.token"})
	}
	required = append(required,
		requirement{c.Source.Collections.Courses, EnvCoursesCollection, "source.collections.courses"},
		requirement{c.Source.Collections.Lessons, EnvLessonsCollection, "source.collections.lessons"},
		requirement{c.Source.Collections.Assignments, EnvAssignmentsCollection, "source.collections.assignments"},
		requirement{c.Source.Collections.Resources, EnvResourcesCollection, "source.collections.resources"},
	)
	switch c.TargetBackend() {
	case TargetBackendSQL:
		required = append(required, requirement{c.Target.DSN, EnvTargetDSN, "target.dsn"})
	default:
		required = append(required,
			requirement{c.Target.URL, EnvTargetURL, "target.url"},
			requirement{c.Target.Token, EnvTargetToken, "target.token"},
		)
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return missingVariableError(req.variable, req.field)
		}
	}
	return nil
}

// RequireListing checks the subset needed to enumerate importable courses.
func (c Config) RequireListing() error {
	if strings.TrimSpace(c.Source.Fixture) == "" && strings.TrimSpace(c.Source.Token) == "" {
		return missingVariableError(EnvSourceToken, "source.token")
	}
	if strings.TrimSpace(c.Source.Collections.Courses) == "" {
		return missingVariableError(EnvCoursesCollection, "source.collections.courses")
	}
	return nil
}

func (c Config) TargetBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Target.Backend))
	if backend == "" {
		return TargetBackendStrapi
	}
	return backend
}
