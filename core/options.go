package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw map, mostly for tests and embedding.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded (environment) < runtime (flags).
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("environment", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("environment"),
		),
		opts.NewLayer(
			opts.NewScope("flags", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("flags"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig loads the raw layer through cfgx and merges runtime overrides
// on top with the options stack.
func ResolveConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	collections := map[string]any{}
	putString(collections, "courses", cfg.Source.Collections.Courses, includeZero)
	putString(collections, "lessons", cfg.Source.Collections.Lessons, includeZero)
	putString(collections, "assignments", cfg.Source.Collections.Assignments, includeZero)
	putString(collections, "resources", cfg.Source.Collections.Resources, includeZero)
	sourceLayer := map[string]any{}
	putString(sourceLayer, "token", cfg.Source.Token, includeZero)
	putString(sourceLayer, "base_url", cfg.Source.BaseURL, includeZero)
	putString(sourceLayer, "fixture", cfg.Source.Fixture, includeZero)
	if len(collections) > 0 {
		sourceLayer["collections"] = collections
	}
	if len(sourceLayer) > 0 {
		layer["source"] = sourceLayer
	}

	targetLayer := map[string]any{}
	putString(targetLayer, "backend", cfg.Target.Backend, includeZero)
	putString(targetLayer, "url", cfg.Target.URL, includeZero)
	putString(targetLayer, "token", cfg.Target.Token, includeZero)
	putString(targetLayer, "dsn", cfg.Target.DSN, includeZero)
	if len(targetLayer) > 0 {
		layer["target"] = targetLayer
	}

	if includeZero || strings.TrimSpace(cfg.Ledger.DSN) != "" {
		layer["ledger"] = map[string]any{"dsn": cfg.Ledger.DSN}
	}

	syncLayer := map[string]any{}
	putString(syncLayer, "contract_path", cfg.Sync.ContractPath, includeZero)
	putString(syncLayer, "mode", cfg.Sync.Mode, includeZero)
	if includeZero || len(cfg.Sync.AllowedStatuses) > 0 {
		syncLayer["allowed_statuses"] = append([]string(nil), cfg.Sync.AllowedStatuses...)
	}
	if includeZero || cfg.Sync.ChildConcurrency != 0 {
		syncLayer["child_concurrency"] = cfg.Sync.ChildConcurrency
	}
	if includeZero || cfg.Sync.HTTPTimeout != 0 {
		syncLayer["http_timeout"] = cfg.Sync.HTTPTimeout
	}
	if includeZero || cfg.Sync.Debug {
		syncLayer["debug"] = cfg.Sync.Debug
	}
	if len(syncLayer) > 0 {
		layer["sync"] = syncLayer
	}
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}
