package render

import (
	"testing"

	"github.com/bilgisen/folio/internal/notion"
	"github.com/stretchr/testify/assert"
)

func rt(s string) []notion.RichText {
	return []notion.RichText{{Type: "text", PlainText: s}}
}

func para(s string) notion.Block {
	return notion.Block{Type: "paragraph", Paragraph: &notion.TextBlock{RichText: rt(s)}}
}

func bullet(s string, children ...notion.Block) notion.Block {
	return notion.Block{Type: "bulleted_list_item", BulletedListItem: &notion.TextBlock{RichText: rt(s)}, Children: children}
}

func numbered(s string) notion.Block {
	return notion.Block{Type: "numbered_list_item", NumberedListItem: &notion.TextBlock{RichText: rt(s)}}
}

func TestMarkdownHeadingsAndParagraphs(t *testing.T) {
	blocks := []notion.Block{
		{Type: "heading_1", Heading1: &notion.HeadingBlock{RichText: rt("Intro")}},
		para("Hello there."),
		{Type: "heading_3", Heading3: &notion.HeadingBlock{RichText: rt("Details")}},
		para("More."),
	}

	assert.Equal(t, "# Intro\n\nHello there.\n\n### Details\n\nMore.", Markdown(blocks))
}

func TestMarkdownListsRestartNumberingAndNest(t *testing.T) {
	blocks := []notion.Block{
		numbered("one"),
		numbered("two"),
		para("break"),
		numbered("again"),
		bullet("parent", bullet("child")),
	}

	want := "1. one\n2. two\n\nbreak\n\n1. again\n- parent\n    - child"
	assert.Equal(t, want, Markdown(blocks))
}

func TestMarkdownAnnotations(t *testing.T) {
	href := "https://example.com"
	segments := []notion.RichText{
		{PlainText: "plain "},
		{PlainText: "bold ", Annotations: notion.Annotations{Bold: true}},
		{PlainText: "code", Annotations: notion.Annotations{Code: true}},
		{PlainText: " and "},
		{PlainText: "link", Href: &href, Annotations: notion.Annotations{Italic: true}},
		{PlainText: " ", Annotations: notion.Annotations{Strikethrough: true}},
		{PlainText: "gone", Annotations: notion.Annotations{Strikethrough: true}},
	}

	got := Markdown([]notion.Block{{Type: "paragraph", Paragraph: &notion.TextBlock{RichText: segments}}})
	assert.Equal(t, "plain **bold** `code` and [_link_](https://example.com) ~~gone~~", got)
}

func TestMarkdownMediaAndMisc(t *testing.T) {
	blocks := []notion.Block{
		{Type: "image", Image: &notion.FileObject{
			Type:    notion.FileHosted,
			File:    &notion.HostedFile{URL: "https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png?sig=1"},
			Caption: rt("A [cat]"),
		}},
		{Type: "code", Code: &notion.CodeBlock{RichText: rt("fmt.Println(1)\nreturn"), Language: "go"}},
		{Type: "quote", Quote: &notion.TextBlock{RichText: rt("wise words")}},
		{Type: "callout", Callout: &notion.CalloutBlock{RichText: rt("heads up"), Icon: &notion.Icon{Type: "emoji", Emoji: "💡"}}},
		{Type: "divider", Divider: &struct{}{}},
		{Type: "bookmark", Bookmark: &notion.LinkBlock{URL: "https://go.dev"}},
		{Type: "to_do", ToDo: &notion.ToDoBlock{RichText: rt("done"), Checked: true}},
		{Type: "equation", Equation: &notion.Equation{Expression: "e=mc^2"}},
		{Type: "child_page", ChildPage: &notion.ChildPage{Title: "ignored"}},
	}

	got := Markdown(blocks)
	assert.Contains(t, got, `![A \[cat\]](https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png?sig=1)`)
	assert.Contains(t, got, "```go\nfmt.Println(1)\nreturn\n```")
	assert.Contains(t, got, "> wise words")
	assert.Contains(t, got, "> 💡 heads up")
	assert.Contains(t, got, "\n---\n")
	assert.Contains(t, got, "[https://go.dev](https://go.dev)")
	assert.Contains(t, got, "- [x] done")
	assert.Contains(t, got, "$$\ne=mc^2\n$$")
	assert.NotContains(t, got, "ignored")
}

func TestMarkdownTable(t *testing.T) {
	row := func(cells ...string) notion.Block {
		r := &notion.TableRowBlock{}
		for _, c := range cells {
			r.Cells = append(r.Cells, rt(c))
		}
		return notion.Block{Type: "table_row", TableRow: r}
	}

	blocks := []notion.Block{{
		Type:     "table",
		Table:    &notion.TableBlock{TableWidth: 2, HasColumnHeader: true},
		Children: []notion.Block{row("Lang", "Year"), row("Go", "2009"), row("a|b")},
	}}

	assert.Equal(t, "| Lang | Year |\n| --- | --- |\n| Go | 2009 |\n| a\\|b |  |", Markdown(blocks))
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Empty(t, Markdown(nil))
	assert.Empty(t, Markdown([]notion.Block{{Type: "paragraph", Paragraph: &notion.TextBlock{}}}))
}

func TestMarkdownQuoteAndCalloutChildren(t *testing.T) {
	blocks := []notion.Block{
		{Type: "quote", Quote: &notion.TextBlock{RichText: rt("said")}, Children: []notion.Block{
			para("nested line"),
			bullet("point"),
		}},
		{Type: "callout", Callout: &notion.CalloutBlock{RichText: rt("note"), Icon: &notion.Icon{Type: "emoji", Emoji: "💡"}}, Children: []notion.Block{
			para("inside callout"),
		}},
		para("after"),
	}

	want := "> said\n>\n> nested line\n>\n> - point\n\n" +
		"> 💡 note\n>\n> inside callout\n\n" +
		"after"
	assert.Equal(t, want, Markdown(blocks))
}

func TestMarkdownHeadingWithoutPayloadKeepsChildren(t *testing.T) {
	blocks := []notion.Block{
		{Type: "heading_2", Children: []notion.Block{para("still here")}},
	}
	assert.Equal(t, "still here", Markdown(blocks))
}

func TestHTMLQuoteChildrenStayInBlockquote(t *testing.T) {
	md := Markdown([]notion.Block{
		{Type: "quote", Quote: &notion.TextBlock{RichText: rt("said")}, Children: []notion.Block{para("more")}},
	})
	out, err := HTML(md)
	assert.NoError(t, err)
	assert.Contains(t, out, "<blockquote>")
	assert.Contains(t, out, "<p>more</p>")
	assert.Regexp(t, `(?s)<blockquote>.*<p>more</p>.*</blockquote>`, out)
}
