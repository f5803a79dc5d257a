package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/target"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// sourceIDAttribute is indexed in its own column; every other filter is
// applied to the decoded attributes.
const sourceIDAttribute = "notionPageId"

// ContentStore is a target.Store over a SQL table. It mirrors what the CMS
// would hold, which makes it usable as a staging target.
type ContentStore struct {
	db   *bun.DB
	repo repository.Repository[*contentRecord]
}

func NewContentStore(db *bun.DB) (*ContentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*contentRecord](db, contentHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid content repository wiring: %w", err)
		}
	}
	return &ContentStore{db: db, repo: repo}, nil
}

func (s *ContentStore) List(ctx context.Context, collection string, query target.Query) (target.Page, error) {
	if s == nil || s.repo == nil {
		return target.Page{}, fmt.Errorf("sqlstore: content store is not configured")
	}
	selectors := []repository.SelectCriteria{
		repository.SelectBy("collection", "=", strings.TrimSpace(collection)),
		repository.OrderBy("created_at ASC"),
	}
	if query.Filter.Field == sourceIDAttribute {
		selectors = append(selectors, repository.SelectBy("source_id", "=", query.Filter.Value))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return target.Page{}, err
	}

	page := target.Page{}
	for _, record := range records {
		out := record.toTarget()
		if !query.Filter.IsZero() && out.Attr(query.Filter.Field) != query.Filter.Value {
			continue
		}
		page.Total++
		if query.Limit > 0 && len(page.Records) >= query.Limit {
			continue
		}
		page.Records = append(page.Records, out)
	}
	return page, nil
}

func (s *ContentStore) Create(ctx context.Context, collection string, payload map[string]any) (target.Record, error) {
	if s == nil || s.repo == nil {
		return target.Record{}, fmt.Errorf("sqlstore: content store is not configured")
	}
	now := time.Now().UTC()
	record := newContentRecord(collection, payload, now)
	record.ID = uuid.NewString()
	record.CreatedAt = now
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return target.Record{}, err
	}
	return created.toTarget(), nil
}

func (s *ContentStore) Update(ctx context.Context, collection string, id string, payload map[string]any) (target.Record, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return target.Record{}, fmt.Errorf("sqlstore: content store is not configured")
	}
	id = strings.TrimSpace(id)
	current := &contentRecord{}
	err := s.db.NewSelect().
		Model(current).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.collection = ?", strings.TrimSpace(collection)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return target.Record{}, &target.StatusError{
				Operation:  "update",
				Collection: collection,
				StatusCode: 404,
				Body:       fmt.Sprintf(`{"error":{"status":404,"message":"entry %s not found"}}`, id),
			}
		}
		return target.Record{}, err
	}

	next := newContentRecord(collection, payload, time.Now().UTC())
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	updated, err := s.repo.Update(ctx, next, repository.UpdateByID(current.ID))
	if err != nil {
		return target.Record{}, err
	}
	return updated.toTarget(), nil
}

// Count returns the number of stored records in collection, or in every
// collection when collection is empty.
func (s *ContentStore) Count(ctx context.Context, collection string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: content store is not configured")
	}
	query := s.db.NewSelect().Model((*contentRecord)(nil))
	if strings.TrimSpace(collection) != "" {
		query = query.Where("?TableAlias.collection = ?", strings.TrimSpace(collection))
	}
	return query.Count(ctx)
}

func newContentRecord(collection string, payload map[string]any, now time.Time) *contentRecord {
	attributes := make(map[string]any, len(payload))
	for key, value := range payload {
		attributes[key] = value
	}
	record := &contentRecord{
		Collection: strings.TrimSpace(collection),
		Attributes: attributes,
		UpdatedAt:  now,
	}
	if value, ok := payload[sourceIDAttribute]; ok && value != nil {
		record.SourceID = strings.TrimSpace(fmt.Sprint(value))
	}
	if value, ok := payload["checksum"].(string); ok {
		record.Checksum = value
	}
	return record
}

func (r *contentRecord) toTarget() target.Record {
	if r == nil {
		return target.Record{}
	}
	attributes := make(map[string]any, len(r.Attributes))
	for key, value := range r.Attributes {
		attributes[key] = value
	}
	return target.Record{ID: r.ID, Attributes: attributes}
}

var _ target.Store = (*ContentStore)(nil)
