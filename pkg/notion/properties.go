package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// PlainProperties flattens a page's properties into plain Go values keyed
// by property name. Empty properties are omitted. Unsupported property
// types are skipped.
func PlainProperties(p notionapi.Page) map[string]any {
	out := make(map[string]any, len(p.Properties))
	for name, prop := range p.Properties {
		if v, ok := plainValue(prop); ok {
			out[name] = v
		}
	}
	return out
}

func plainValue(prop notionapi.Property) (any, bool) {
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		return nonEmpty(plainText(v.Title))
	case *notionapi.RichTextProperty:
		return nonEmpty(plainText(v.RichText))
	case *notionapi.NumberProperty:
		return v.Number, true
	case *notionapi.SelectProperty:
		return nonEmpty(v.Select.Name)
	case *notionapi.StatusProperty:
		return nonEmpty(v.Status.Name)
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(v.MultiSelect))
		for _, o := range v.MultiSelect {
			names = append(names, o.Name)
		}
		return nonEmpty(strings.Join(names, ", "))
	case *notionapi.EmailProperty:
		return nonEmpty(v.Email)
	case *notionapi.PhoneNumberProperty:
		return nonEmpty(v.PhoneNumber)
	case *notionapi.URLProperty:
		return nonEmpty(v.URL)
	case *notionapi.CheckboxProperty:
		return v.Checkbox, true
	case *notionapi.DateProperty:
		if v.Date == nil || v.Date.Start == nil {
			return nil, false
		}
		return time.Time(*v.Date.Start).Format(time.DateOnly), true
	default:
		return nil, false
	}
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

func nonEmpty(s string) (any, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
