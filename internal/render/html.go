package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Enforce nofollow and target=_blank on links
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	// syntax highlighting hooks on fenced code
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#-]+$`)).OnElements("code")
	return p
}

// HTML converts markdown into sanitised HTML. Parsers are created per call
// since gomarkdown parsers keep state.
func HTML(md string) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})

	raw := markdown.Render(doc, renderer)
	clean := policy.SanitizeBytes(raw)

	out, err := lazyImages(string(clean))
	if err != nil {
		return "", fmt.Errorf("post-process html: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// lazyImages defers offscreen image loading.
func lazyImages(fragment string) (string, error) {
	if !strings.Contains(fragment, "<img") {
		return fragment, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("loading", "lazy")
		s.SetAttr("decoding", "async")
	})

	return doc.Find("body").Html()
}
