package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-content-sync/target"
)

// IdentityResolver finds the existing target record for an identity value.
type IdentityResolver struct {
	store target.Store
}

func NewIdentityResolver(store target.Store) (*IdentityResolver, error) {
	if store == nil {
		return nil, fmt.Errorf("core: target store is required")
	}
	return &IdentityResolver{store: store}, nil
}

// ResolveExisting returns the single record whose identity field equals value.
// found is false when the store holds none.
func (r *IdentityResolver) ResolveExisting(
	ctx context.Context,
	collection string,
	identityField string,
	value string,
) (record target.Record, found bool, err error) {
	if r == nil || r.store == nil {
		return target.Record{}, false, fmt.Errorf("core: identity resolver is not configured")
	}
	identityField = strings.TrimSpace(identityField)
	value = strings.TrimSpace(value)
	if identityField == "" || value == "" {
		return target.Record{}, false, fmt.Errorf("core: identity field and value are required")
	}
	page, err := r.store.List(ctx, collection, target.Query{
		Filter: target.Filter{Field: identityField, Value: value},
		Limit:  1,
	})
	if err != nil {
		return target.Record{}, false, err
	}
	if len(page.Records) == 0 {
		return target.Record{}, false, nil
	}
	return page.Records[0], true, nil
}
