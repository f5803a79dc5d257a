package contentsync

import (
	"context"

	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	"github.com/goliatone/go-content-sync/query"
	syncpkg "github.com/goliatone/go-content-sync/sync"
)

type Config = core.Config

type RawConfigLoader = core.RawConfigLoader

type ImportRequest = syncpkg.ImportRequest

type Report = syncpkg.Report

type CourseSummary = syncpkg.CourseSummary

type RunPage = query.RunPage

type Mode = contract.Mode

const (
	ModeImport  = contract.ModeImport
	ModeRuntime = contract.ModeRuntime
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// ResolveConfig layers defaults, loader values and runtime overrides.
func ResolveConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	return core.ResolveConfig(ctx, loader, runtime)
}

func NewEnvConfigLoader() core.EnvConfigLoader {
	return core.NewEnvConfigLoader()
}

func LoadDotEnv(paths ...string) error {
	return core.LoadDotEnv(paths...)
}
