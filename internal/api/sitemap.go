package api

import (
	"encoding/xml"
	"net/url"
	"time"

	"github.com/bilgisen/folio/internal/models"
	"github.com/gofiber/fiber/v2"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// BuildSitemap lists the home page, the blog index and every post.
func BuildSitemap(siteURL string, list []models.Post) ([]byte, error) {
	var latest time.Time
	for _, p := range list {
		if p.PublishedAt.After(latest) {
			latest = p.PublishedAt
		}
	}

	set := urlSet{XMLNS: sitemapNS}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: siteURL + "/", LastMod: lastMod(latest), ChangeFreq: "weekly", Priority: "1.0"},
		sitemapURL{Loc: siteURL + "/blog", LastMod: lastMod(latest), ChangeFreq: "daily", Priority: "0.9"},
	)
	for _, p := range list {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        siteURL + "/blog/" + url.PathEscape(p.Slug),
			LastMod:    lastMod(p.PublishedAt),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Sitemap handles GET /sitemap.xml
func (h *Handlers) Sitemap(c *fiber.Ctx) error {
	res := h.posts.ListPosts(c.UserContext())

	body, err := BuildSitemap(h.siteURL, res.Posts)
	if err != nil {
		return err
	}
	if res.Degraded() {
		c.Set(fiber.HeaderCacheControl, "no-store")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.Send(body)
}
