package sync

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/source"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const sourceCacheKeyPrefix = "contentsync::source::v1"

// sourceLookups memoizes source reads for one run. Each run builds its own,
// so repeated runs in one process never see each other's reads.
type sourceLookups struct {
	client source.Client
	cache  repositorycache.CacheService
}

func newSourceLookups(client source.Client, ttl time.Duration) (*sourceLookups, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, err
	}
	return &sourceLookups{client: client, cache: service}, nil
}

func sourceCacheKey(kind string, id string) string {
	return strings.Join([]string{sourceCacheKeyPrefix, kind, url.PathEscape(id)}, "::")
}

func (l *sourceLookups) collection(ctx context.Context, collection string) ([]source.Record, error) {
	records, err := repositorycache.GetOrFetch(ctx, l.cache, sourceCacheKey("collection", collection), func(ctx context.Context) ([]source.Record, error) {
		return source.ListAll(ctx, l.client, collection)
	})
	if err != nil {
		return nil, err
	}
	return cloneRecords(records), nil
}

func (l *sourceLookups) record(ctx context.Context, id string) (source.Record, error) {
	record, err := repositorycache.GetOrFetch(ctx, l.cache, sourceCacheKey("record", source.NormalizeID(id)), func(ctx context.Context) (source.Record, error) {
		return l.client.GetRecord(ctx, id)
	})
	if err != nil {
		return source.Record{}, err
	}
	return cloneRecord(record), nil
}

// forget drops a cached record after it was written back.
func (l *sourceLookups) forget(ctx context.Context, id string) error {
	return l.cache.Delete(ctx, sourceCacheKey("record", source.NormalizeID(id)))
}

func cloneRecords(records []source.Record) []source.Record {
	out := make([]source.Record, 0, len(records))
	for _, record := range records {
		out = append(out, cloneRecord(record))
	}
	return out
}

func cloneRecord(record source.Record) source.Record {
	props := make(source.Properties, len(record.Properties))
	for name, value := range record.Properties {
		props[name] = value
	}
	return source.Record{ID: record.ID, Properties: props}
}
