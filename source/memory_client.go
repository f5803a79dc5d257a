package source

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"sync"
)

const memoryPageSize = 50

// MemoryClient serves collections from memory. It backs fixture mode and
// tests, and records every patch it receives.
type MemoryClient struct {
	mu          sync.Mutex
	collections map[string][]string
	records     map[string]Record
	patches     []PatchCall
	pageSize    int
}

type PatchCall struct {
	ID    string
	Patch Properties
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		collections: map[string][]string{},
		records:     map[string]Record{},
		pageSize:    memoryPageSize,
	}
}

// WithPageSize sets how many records ListRecords returns per page.
func (c *MemoryClient) WithPageSize(size int) *MemoryClient {
	if size > 0 {
		c.pageSize = size
	}
	return c
}

// Add appends records to collection; a record id seen before is replaced.
func (c *MemoryClient) Add(collection string, records ...Record) *MemoryClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range records {
		if _, exists := c.records[record.ID]; !exists && collection != "" {
			c.collections[collection] = append(c.collections[collection], record.ID)
		}
		c.records[record.ID] = cloneRecord(record)
	}
	return c
}

func (c *MemoryClient) ListRecords(_ context.Context, collection string, cursor string) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.collections[collection]
	start := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return Page{}, requestError("query collection", 400, []byte("invalid cursor "+cursor), map[string]any{"collection": collection})
		}
		start = parsed
	}
	if start > len(ids) {
		start = len(ids)
	}
	end := start + c.pageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := Page{Records: make([]Record, 0, end-start)}
	for _, id := range ids[start:end] {
		page.Records = append(page.Records, cloneRecord(c.records[id]))
	}
	if end < len(ids) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (c *MemoryClient) GetRecord(_ context.Context, id string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.lookup(id)
	if !ok {
		return Record{}, notFoundError(id)
	}
	return cloneRecord(record), nil
}

func (c *MemoryClient) PatchRecord(_ context.Context, id string, patch Properties) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	applied := make(Properties, len(patch))
	for name, value := range patch {
		record.Properties[name] = value
		applied[name] = value
	}
	c.records[record.ID] = record
	c.patches = append(c.patches, PatchCall{ID: record.ID, Patch: applied})
	return nil
}

// Patches returns the patches received so far, oldest first.
func (c *MemoryClient) Patches() []PatchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PatchCall(nil), c.patches...)
}

func (c *MemoryClient) lookup(id string) (Record, bool) {
	if record, ok := c.records[id]; ok {
		return record, true
	}
	normalized := NormalizeID(id)
	for key, record := range c.records {
		if NormalizeID(key) == normalized {
			return record, true
		}
	}
	return Record{}, false
}

type fixtureDocument struct {
	Collections map[string][]notionPage `json:"collections"`
	Pages       []notionPage            `json:"pages"`
}

// LoadFixture builds a MemoryClient from a JSON export shaped as
// {"collections": {"<id>": [page...]}, "pages": [page...]}. Standalone pages
// are reachable by id only, which is how parent phases are usually exported.
func LoadFixture(path string) (*MemoryClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(err, TextCodeInvalidFixture, "source: read fixture", map[string]any{"path": path})
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*MemoryClient, error) {
	var doc fixtureDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wrapError(err, TextCodeInvalidFixture, "source: decode fixture", nil)
	}
	client := NewMemoryClient()
	names := make([]string, 0, len(doc.Collections))
	for name := range doc.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, page := range doc.Collections[name] {
			client.Add(name, page.record())
		}
	}
	for _, page := range doc.Pages {
		client.Add("", page.record())
	}
	return client, nil
}

func cloneRecord(record Record) Record {
	props := make(Properties, len(record.Properties))
	for name, value := range record.Properties {
		props[name] = value
	}
	return Record{ID: record.ID, Properties: props}
}

var _ Client = (*MemoryClient)(nil)
