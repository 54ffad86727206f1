package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"finagent/internal/core"
)

const (
	typeTitle    = "title"
	typeNumber   = "number"
	typeSelect   = "select"
	typeRichText = "rich_text"
	typeDate     = "date"
)

// field binds a logical field to any database property whose lowercased name
// contains key and whose type is typ.
type field struct {
	key string
	typ string
}

var expenseFields = []field{
	{"amount", typeNumber},
	{"category", typeSelect},
	{"merchant", typeRichText},
	{"date", typeDate},
	{"description", typeRichText},
}

var budgetFields = []field{
	{"category", typeSelect},
	{"amount", typeNumber},
	{"period", typeSelect},
	{"start", typeDate},
	{"spent", typeNumber},
}

func matchField(name, typ string, fields []field) (field, bool) {
	lower := strings.ToLower(name)
	for _, f := range fields {
		if f.typ == typ && strings.Contains(lower, f.key) {
			return f, true
		}
	}
	return field{}, false
}

// buildCreateProperties maps values onto the properties the database schema
// actually has. The first title property receives title.
func buildCreateProperties(schema notionapi.PropertyConfigs, title string, values map[string]notionapi.Property, fields []field) notionapi.Properties {
	props := notionapi.Properties{}
	titled := false
	for name, cfg := range schema {
		typ := string(cfg.GetType())
		if typ == typeTitle {
			if !titled {
				props[name] = titleValue(title)
				titled = true
			}
			continue
		}
		f, ok := matchField(name, typ, fields)
		if !ok {
			continue
		}
		if v, ok := values[f.key]; ok {
			props[name] = v
		}
	}
	return props
}

// propertyType reports the value type of a page property.
func propertyType(p notionapi.Property) string {
	switch p.(type) {
	case *notionapi.TitleProperty:
		return typeTitle
	case *notionapi.NumberProperty:
		return typeNumber
	case *notionapi.SelectProperty:
		return typeSelect
	case *notionapi.RichTextProperty:
		return typeRichText
	case *notionapi.DateProperty:
		return typeDate
	}
	return ""
}

// pageValues extracts the page's field values keyed by field key. Numbers
// come back as float64, selects/rich text/dates as strings.
func pageValues(page *notionapi.Page, fields []field) map[string]any {
	out := make(map[string]any)
	for name, prop := range page.Properties {
		f, ok := matchField(name, propertyType(prop), fields)
		if !ok {
			continue
		}
		switch p := prop.(type) {
		case *notionapi.NumberProperty:
			out[f.key] = p.Number
		case *notionapi.SelectProperty:
			out[f.key] = p.Select.Name
		case *notionapi.RichTextProperty:
			out[f.key] = plainText(p.RichText)
		case *notionapi.DateProperty:
			if p.Date != nil && p.Date.Start != nil {
				out[f.key] = core.FormatDate(time.Time(*p.Date.Start))
			} else {
				out[f.key] = ""
			}
		}
	}
	return out
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.PlainText != "" {
			b.WriteString(r.PlainText)
		} else if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

func str(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}

func num(values map[string]any, key string) float64 {
	f, _ := values[key].(float64)
	return f
}

func createdTime(page *notionapi.Page) string {
	if page.CreatedTime.IsZero() {
		return ""
	}
	return page.CreatedTime.UTC().Format(time.RFC3339)
}

func titleValue(s string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{Title: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}}
}

func numberValue(m core.Money) *notionapi.NumberProperty {
	return &notionapi.NumberProperty{Number: m.Float()}
}

func selectValue(s string) *notionapi.SelectProperty {
	return &notionapi.SelectProperty{Select: notionapi.Option{Name: s}}
}

func richTextValue(s string) *notionapi.RichTextProperty {
	return &notionapi.RichTextProperty{RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}}
}

// dateValue expects a validated YYYY-MM-DD string.
func dateValue(s string) *notionapi.DateProperty {
	t, err := core.ParseDate(s)
	if err != nil {
		return &notionapi.DateProperty{}
	}
	d := notionapi.Date(t)
	return &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}
