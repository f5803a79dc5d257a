package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func envLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func completeEnv() map[string]string {
	return map[string]string{
		EnvSourceToken:           "secret_notion",
		EnvCoursesCollection:     "db-courses",
		EnvLessonsCollection:     "db-lessons",
		EnvAssignmentsCollection: "db-assignments",
		EnvResourcesCollection:   "db-resources",
		EnvTargetURL:             "https://cms.example.test",
		EnvTargetToken:           "secret_strapi",
	}
}

func TestResolveConfigFromEnvironment(t *testing.T) {
	env := completeEnv()
	env[EnvHTTPTimeout] = "45"
	env[EnvChildConcurrency] = "4"

	cfg, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.Source.Token != "secret_notion" || cfg.Source.Collections.Resources != "db-resources" {
		t.Fatalf("unexpected source config %+v", cfg.Source)
	}
	if cfg.Target.URL != "https://cms.example.test" || cfg.TargetBackend() != TargetBackendStrapi {
		t.Fatalf("unexpected target config %+v", cfg.Target)
	}
	if cfg.Sync.HTTPTimeout != 45*time.Second || cfg.Sync.ChildConcurrency != 4 {
		t.Fatalf("unexpected sync config %+v", cfg.Sync)
	}
	if cfg.Sync.Mode != "IMPORT" || len(cfg.Sync.AllowedStatuses) != 3 {
		t.Fatalf("expected defaults to survive, got %+v", cfg.Sync)
	}
	if err := cfg.RequireRuntime(); err != nil {
		t.Fatalf("expected complete runtime config, got %v", err)
	}
}

func TestResolveConfigAcceptsTokenAlias(t *testing.T) {
	env := completeEnv()
	delete(env, EnvSourceToken)
	env[EnvSourceTokenAlias] = "alias_token"
	cfg, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.Source.Token != "alias_token" {
		t.Fatalf("expected alias token, got %q", cfg.Source.Token)
	}
}

func TestResolveConfigRuntimeOverridesEnvironment(t *testing.T) {
	env := completeEnv()
	env[EnvMode] = "IMPORT"
	cfg, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{
		Sync: SyncConfig{Mode: "RUNTIME"},
	})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.Sync.Mode != "RUNTIME" {
		t.Fatalf("expected runtime override, got %q", cfg.Sync.Mode)
	}
	if cfg.Source.Collections.Lessons != "db-lessons" {
		t.Fatalf("expected environment values to survive override, got %+v", cfg.Source.Collections)
	}
}

func TestRequireRuntimeNamesMissingVariable(t *testing.T) {
	for _, variable := range []string{EnvSourceToken, EnvLessonsCollection, EnvTargetToken} {
		env := completeEnv()
		delete(env, variable)
		cfg, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{})
		if err != nil {
			t.Fatalf("resolve config: %v", err)
		}
		err = cfg.RequireRuntime()
		if !HasCode(err, ConfigErrorMissingVariable) {
			t.Fatalf("expected missing variable error for %s, got %v", variable, err)
		}
		if !strings.Contains(ErrorMessage(err), variable) {
			t.Fatalf("expected %s named in %q", variable, ErrorMessage(err))
		}
	}
}

func TestRequireRuntimeBackendAndFixtureRules(t *testing.T) {
	env := completeEnv()
	delete(env, EnvTargetURL)
	delete(env, EnvTargetToken)
	delete(env, EnvSourceToken)
	env[EnvTargetBackend] = "sql"
	env[EnvSourceFixture] = "testdata/course.json"

	cfg, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	err = cfg.RequireRuntime()
	if !HasCode(err, ConfigErrorMissingVariable) || !strings.Contains(ErrorMessage(err), EnvTargetDSN) {
		t.Fatalf("expected missing DSN, got %v", err)
	}

	cfg.Target.DSN = "file:content.db"
	if err := cfg.RequireRuntime(); err != nil {
		t.Fatalf("expected fixture + sql config to be complete, got %v", err)
	}
}

func TestResolveConfigRejectsInvalidValues(t *testing.T) {
	env := completeEnv()
	env[EnvChildConcurrency] = "many"
	if _, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{}); !HasCode(err, ConfigErrorInvalid) {
		t.Fatalf("expected invalid concurrency error, got %v", err)
	}

	env = completeEnv()
	env[EnvTargetBackend] = "mongo"
	if _, err := ResolveConfig(context.Background(), EnvConfigLoader{Lookup: envLookup(env)}, Config{}); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestRequireListingNeedsOnlyCourses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Token = "token"
	if err := cfg.RequireListing(); !HasCode(err, ConfigErrorMissingVariable) {
		t.Fatalf("expected missing courses collection, got %v", err)
	}
	cfg.Source.Collections.Courses = "db-courses"
	if err := cfg.RequireListing(); err != nil {
		t.Fatalf("expected listing config complete, got %v", err)
	}
}

func TestStaticConfigLoaderFeedsProvider(t *testing.T) {
	cfg, err := NewCfgxConfigProvider(StaticConfigLoader(map[string]any{
		"service_name": "importer",
		"target":       map[string]any{"backend": "sql", "dsn": "file:test.db"},
	})).Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "importer" || cfg.TargetBackend() != TargetBackendSQL {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Sync.ChildConcurrency != 1 {
		t.Fatalf("expected defaults retained, got %+v", cfg.Sync)
	}
}
