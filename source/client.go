package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Client is the authoring system boundary. Collections are referenced by the
// identifiers configured for each entity type.
type Client interface {
	ListRecords(ctx context.Context, collection string, cursor string) (Page, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	PatchRecord(ctx context.Context, id string, patch Properties) error
}

const maxListPages = 1000

// ListAll follows cursors until the collection is exhausted.
func ListAll(ctx context.Context, client Client, collection string) ([]Record, error) {
	var (
		records []Record
		cursor  string
	)
	for i := 0; i < maxListPages; i++ {
		page, err := client.ListRecords(ctx, collection, cursor)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if !page.HasMore || strings.TrimSpace(page.NextCursor) == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}
	return records, nil
}

var pageIDPattern = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}|[a-f0-9]{32}`)

// ExtractID finds a page id inside input (a bare id or a page URL) and returns
// it in canonical hyphenated form.
func ExtractID(input string) (string, bool) {
	match := pageIDPattern.FindString(strings.TrimSpace(input))
	if match == "" {
		return "", false
	}
	parsed, err := uuid.Parse(match)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// FormatID returns id in hyphenated form when it is a valid page id and
// unchanged otherwise.
func FormatID(id string) string {
	if parsed, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return parsed.String()
	}
	return id
}
