package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

const (
	EnvSourceToken           = "NOTION_TOKEN"
	EnvSourceTokenAlias      = "NOTION_API_KEY"
	EnvCoursesCollection     = "NOTION_DB_COURSES"
	EnvLessonsCollection     = "NOTION_DB_LESSONS"
	EnvAssignmentsCollection = "NOTION_DB_ASSIGNMENTS"
	EnvResourcesCollection   = "NOTION_DB_RESOURCES"
	EnvTargetURL             = "STRAPI_URL"
	EnvTargetToken           = "STRAPI_API_TOKEN"

	EnvContractPath     = "CONTENTSYNC_CONTRACT_PATH"
	EnvTargetBackend    = "CONTENTSYNC_TARGET_BACKEND"
	EnvTargetDSN        = "CONTENTSYNC_TARGET_DSN"
	EnvLedgerDSN        = "CONTENTSYNC_LEDGER_DSN"
	EnvSourceFixture    = "CONTENTSYNC_SOURCE_FIXTURE"
	EnvSourceBaseURL    = "CONTENTSYNC_SOURCE_URL"
	EnvHTTPTimeout      = "CONTENTSYNC_HTTP_TIMEOUT"
	EnvChildConcurrency = "CONTENTSYNC_CHILD_CONCURRENCY"
	EnvMode             = "CONTENTSYNC_MODE"
	EnvDebug            = "CONTENTSYNC_DEBUG"
)

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return WrapSyncError(err, goerrors.CategoryBadInput, ConfigErrorInvalid, "core: load env file "+path, map[string]any{"path": path})
		}
	}
	return nil
}

// EnvConfigLoader reads the environment contract into a raw config map.
type EnvConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func NewEnvConfigLoader() EnvConfigLoader {
	return EnvConfigLoader{Lookup: os.LookupEnv}
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(keys ...string) string {
		for _, key := range keys {
			if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
		return ""
	}

	raw := map[string]any{}
	source := map[string]any{}
	setString(source, "token", get(EnvSourceToken, EnvSourceTokenAlias))
	setString(source, "base_url", get(EnvSourceBaseURL))
	setString(source, "fixture", get(EnvSourceFixture))
	collections := map[string]any{}
	setString(collections, "courses", get(EnvCoursesCollection))
	setString(collections, "lessons", get(EnvLessonsCollection))
	setString(collections, "assignments", get(EnvAssignmentsCollection))
	setString(collections, "resources", get(EnvResourcesCollection))
	if len(collections) > 0 {
		source["collections"] = collections
	}
	if len(source) > 0 {
		raw["source"] = source
	}

	target := map[string]any{}
	setString(target, "backend", get(EnvTargetBackend))
	setString(target, "url", get(EnvTargetURL))
	setString(target, "token", get(EnvTargetToken))
	setString(target, "dsn", get(EnvTargetDSN))
	if len(target) > 0 {
		raw["target"] = target
	}

	if dsn := get(EnvLedgerDSN); dsn != "" {
		raw["ledger"] = map[string]any{"dsn": dsn}
	}

	sync := map[string]any{}
	setString(sync, "contract_path", get(EnvContractPath))
	setString(sync, "mode", get(EnvMode))
	if value := get(EnvHTTPTimeout); value != "" {
		timeout, err := parseTimeout(value)
		if err != nil {
			return nil, WrapSyncError(err, goerrors.CategoryBadInput, ConfigErrorInvalid, "core: invalid "+EnvHTTPTimeout, map[string]any{"variable": EnvHTTPTimeout})
		}
		sync["http_timeout"] = timeout
	}
	if value := get(EnvChildConcurrency); value != "" {
		concurrency, err := strconv.Atoi(value)
		if err != nil {
			return nil, WrapSyncError(err, goerrors.CategoryBadInput, ConfigErrorInvalid, "core: invalid "+EnvChildConcurrency, map[string]any{"variable": EnvChildConcurrency})
		}
		sync["child_concurrency"] = concurrency
	}
	if value := get(EnvDebug); value != "" {
		debug, err := strconv.ParseBool(value)
		if err == nil {
			sync["debug"] = debug
		}
	}
	if len(sync) > 0 {
		raw["sync"] = sync
	}
	return raw, nil
}

// parseTimeout accepts Go durations ("45s") or plain seconds ("45").
func parseTimeout(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func setString(target map[string]any, key string, value string) {
	if value != "" {
		target[key] = value
	}
}
