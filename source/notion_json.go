package source

import (
	"encoding/json"
	"strings"
)

type notionText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type notionOption struct {
	Name string `json:"name"`
}

type notionRef struct {
	ID string `json:"id"`
}

type notionDate struct {
	Start string `json:"start"`
}

type notionRollup struct {
	Type   string           `json:"type"`
	Number *float64         `json:"number"`
	Array  []notionProperty `json:"array"`
}

type notionProperty struct {
	Type        string         `json:"type"`
	Title       []notionText   `json:"title"`
	RichText    []notionText   `json:"rich_text"`
	Select      *notionOption  `json:"select"`
	Status      *notionOption  `json:"status"`
	MultiSelect []notionOption `json:"multi_select"`
	Number      *float64       `json:"number"`
	Checkbox    *bool          `json:"checkbox"`
	Relation    []notionRef    `json:"relation"`
	Rollup      *notionRollup  `json:"rollup"`
	URL         *string        `json:"url"`
	Date        *notionDate    `json:"date"`
}

type notionPage struct {
	ID         string                    `json:"id"`
	Properties map[string]notionProperty `json:"properties"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

func joinText(spans []notionText) string {
	var b strings.Builder
	for _, span := range spans {
		if span.PlainText != "" {
			b.WriteString(span.PlainText)
			continue
		}
		if span.Text != nil {
			b.WriteString(span.Text.Content)
		}
	}
	return b.String()
}

func (p notionProperty) value() PropertyValue {
	switch p.Type {
	case "title":
		return TitleProperty{Text: joinText(p.Title)}
	case "rich_text":
		return RichTextProperty{Text: joinText(p.RichText)}
	case "select":
		if p.Select == nil {
			return SelectProperty{}
		}
		return SelectProperty{Name: p.Select.Name}
	case "status":
		if p.Status == nil {
			return SelectProperty{Status: true}
		}
		return SelectProperty{Name: p.Status.Name, Status: true}
	case "multi_select":
		names := make([]string, 0, len(p.MultiSelect))
		for _, option := range p.MultiSelect {
			names = append(names, option.Name)
		}
		return MultiSelectProperty{Names: names}
	case "number":
		return NumberProperty{Value: p.Number}
	case "checkbox":
		return CheckboxProperty{Checked: p.Checkbox != nil && *p.Checkbox}
	case "relation":
		ids := make([]string, 0, len(p.Relation))
		for _, ref := range p.Relation {
			ids = append(ids, ref.ID)
		}
		return RelationProperty{IDs: ids}
	case "rollup":
		if p.Rollup == nil {
			return RollupProperty{}
		}
		items := make([]PropertyValue, 0, len(p.Rollup.Array))
		for _, item := range p.Rollup.Array {
			items = append(items, item.value())
		}
		return RollupProperty{Number: p.Rollup.Number, Items: items}
	case "url":
		if p.URL == nil {
			return URLProperty{}
		}
		return URLProperty{URL: *p.URL}
	case "date":
		if p.Date == nil {
			return DateProperty{}
		}
		return DateProperty{Start: p.Date.Start}
	default:
		return UnknownProperty{Type: p.Type}
	}
}

func (p notionPage) record() Record {
	props := make(Properties, len(p.Properties))
	for name, property := range p.Properties {
		props[name] = property.value()
	}
	return Record{ID: p.ID, Properties: props}
}

// DecodeRecord parses one page object in the authoring API's JSON shape.
func DecodeRecord(data []byte) (Record, error) {
	var page notionPage
	if err := json.Unmarshal(data, &page); err != nil {
		return Record{}, err
	}
	return page.record(), nil
}

func textSpans(text string) []map[string]any {
	return []map[string]any{{
		"type": "text",
		"text": map[string]any{"content": text},
	}}
}

// encodeProperty renders a patch value in the API's property payload shape.
// Unknown and read-only kinds return ok=false.
func encodeProperty(value PropertyValue) (map[string]any, bool) {
	switch typed := value.(type) {
	case TitleProperty:
		return map[string]any{"title": textSpans(typed.Text)}, true
	case RichTextProperty:
		return map[string]any{"rich_text": textSpans(typed.Text)}, true
	case SelectProperty:
		key := "select"
		if typed.Status {
			key = "status"
		}
		return map[string]any{key: map[string]any{"name": typed.Name}}, true
	case MultiSelectProperty:
		options := make([]map[string]any, 0, len(typed.Names))
		for _, name := range typed.Names {
			options = append(options, map[string]any{"name": name})
		}
		return map[string]any{"multi_select": options}, true
	case NumberProperty:
		if typed.Value == nil {
			return map[string]any{"number": nil}, true
		}
		return map[string]any{"number": *typed.Value}, true
	case CheckboxProperty:
		return map[string]any{"checkbox": typed.Checked}, true
	case URLProperty:
		return map[string]any{"url": typed.URL}, true
	case DateProperty:
		return map[string]any{"date": map[string]any{"start": typed.Start}}, true
	case RelationProperty:
		refs := make([]map[string]any, 0, len(typed.IDs))
		for _, id := range typed.IDs {
			refs = append(refs, map[string]any{"id": id})
		}
		return map[string]any{"relation": refs}, true
	default:
		return nil, false
	}
}
