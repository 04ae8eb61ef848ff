package posts

import (
	"sort"
	"strings"
	"time"

	"github.com/bilgisen/folio/internal/imageproxy"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/notion"
)

// Property names looked up on database pages.
const (
	PropTitle     = "Title"
	PropName      = "Name"
	PropSlug      = "Slug"
	PropDate      = "Date"
	PropSummary   = "Summary"
	PropTags      = "Tags"
	PropPublished = "Published"
)

const dateOnly = "2006-01-02"

// Title resolves the display title: "Title", then "Name", then any other
// title-typed property in name order.
func Title(p notion.Page) string {
	for _, name := range []string{PropTitle, PropName} {
		if prop, ok := p.Properties[name]; ok {
			if s, ok := prop.Text(); ok {
				return s
			}
		}
	}

	names := make([]string, 0, len(p.Properties))
	for name, prop := range p.Properties {
		if prop.Type == "title" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if s, ok := p.Properties[name].Text(); ok {
			return s
		}
	}
	return models.Untitled
}

// Slug returns the "Slug" rich text, or the page id.
func Slug(p notion.Page) string {
	if prop, ok := p.Properties[PropSlug]; ok {
		if s, ok := prop.Text(); ok {
			return s
		}
	}
	return p.ID
}

// PublishedAt reads the "Date" property, falling back to the page's
// creation time. Anything later than now is reported as now.
func PublishedAt(p notion.Page, now time.Time) time.Time {
	t := p.CreatedTime
	if prop, ok := p.Properties[PropDate]; ok && prop.Date != nil {
		if parsed, ok := parseDate(prop.Date.Start); ok {
			t = parsed
		}
	}
	if t.After(now) {
		return now
	}
	return t
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func Summary(p notion.Page) string {
	if prop, ok := p.Properties[PropSummary]; ok {
		if s, ok := prop.Text(); ok {
			return s
		}
	}
	return ""
}

// Tags returns the "Tags" option names in upstream order, never nil.
func Tags(p notion.Page) []string {
	if prop, ok := p.Properties[PropTags]; ok {
		if names, ok := prop.Names(); ok {
			return names
		}
	}
	return []string{}
}

// Cover returns the page cover routed through the image proxy when the
// link is one that expires.
func Cover(p notion.Page) string {
	link, ok := p.Cover.Link()
	if !ok {
		return ""
	}
	return imageproxy.RewriteURL(link)
}

// Published is false only when the page carries a "Published" checkbox
// that is unticked.
func Published(p notion.Page) bool {
	prop, ok := p.Properties[PropPublished]
	if !ok || prop.Checkbox == nil {
		return true
	}
	return *prop.Checkbox
}
