package render

import (
	"fmt"
	"strings"

	"github.com/bilgisen/folio/internal/notion"
)

// Markdown renders a block tree as markdown. Each call works on its own
// buffer.
func Markdown(blocks []notion.Block) string {
	w := &mdWriter{}
	w.blocks(blocks, 0)
	return strings.TrimSpace(w.b.String())
}

type mdWriter struct {
	b strings.Builder
}

func (w *mdWriter) blocks(blocks []notion.Block, depth int) {
	number := 0
	for i := range blocks {
		blk := &blocks[i]
		if blk.Type == "numbered_list_item" {
			number++
		} else {
			number = 0
		}
		w.block(blk, depth, number)

		// a list needs a blank line before whatever follows it
		if isListItem(blk.Type) && (i == len(blocks)-1 || !isListItem(blocks[i+1].Type)) {
			w.b.WriteString("\n")
		}
	}
}

func isListItem(t string) bool {
	return t == "bulleted_list_item" || t == "numbered_list_item" || t == "to_do"
}

func (w *mdWriter) line(depth int, s string) {
	w.b.WriteString(strings.Repeat("    ", depth))
	w.b.WriteString(s)
	w.b.WriteString("\n")
}

// para writes s followed by a blank line so the next block starts fresh.
func (w *mdWriter) para(depth int, s string) {
	for _, l := range strings.Split(s, "\n") {
		w.line(depth, l)
	}
	w.b.WriteString("\n")
}

func (w *mdWriter) block(blk *notion.Block, depth, number int) {
	switch blk.Type {
	case "paragraph":
		if blk.Paragraph != nil {
			if text := richText(blk.Paragraph.RichText); text != "" {
				w.para(depth, text)
			}
		}
		w.blocks(blk.Children, depth)

	case "heading_1", "heading_2", "heading_3":
		if h := heading(blk); h != nil {
			level := int(blk.Type[len(blk.Type)-1] - '0')
			w.para(depth, strings.Repeat("#", level)+" "+richText(h.RichText))
		}
		w.blocks(blk.Children, depth)

	case "bulleted_list_item":
		if blk.BulletedListItem != nil {
			w.line(depth, "- "+richText(blk.BulletedListItem.RichText))
		}
		w.listChildren(blk, depth)

	case "numbered_list_item":
		if blk.NumberedListItem != nil {
			w.line(depth, fmt.Sprintf("%d. %s", number, richText(blk.NumberedListItem.RichText)))
		}
		w.listChildren(blk, depth)

	case "to_do":
		if blk.ToDo != nil {
			box := "[ ]"
			if blk.ToDo.Checked {
				box = "[x]"
			}
			w.line(depth, "- "+box+" "+richText(blk.ToDo.RichText))
		}
		w.listChildren(blk, depth)

	case "toggle":
		if blk.Toggle != nil {
			w.para(depth, "**"+richText(blk.Toggle.RichText)+"**")
		}
		w.blocks(blk.Children, depth)

	case "quote":
		var text string
		if blk.Quote != nil {
			text = richText(blk.Quote.RichText)
		}
		w.quote(depth, text, blk.Children)

	case "callout":
		var text string
		if blk.Callout != nil {
			text = richText(blk.Callout.RichText)
			if blk.Callout.Icon != nil && blk.Callout.Icon.Emoji != "" {
				text = blk.Callout.Icon.Emoji + " " + text
			}
		}
		w.quote(depth, text, blk.Children)

	case "code":
		if blk.Code != nil {
			lang := blk.Code.Language
			if lang == "plain text" {
				lang = ""
			}
			w.line(depth, "```"+strings.ReplaceAll(lang, " ", "-"))
			for _, l := range strings.Split(notion.PlainText(blk.Code.RichText), "\n") {
				w.line(depth, l)
			}
			w.line(depth, "```")
			w.b.WriteString("\n")
		}

	case "image":
		if url, ok := blk.Image.Link(); ok {
			alt := escapeBrackets(notion.PlainText(blk.Image.Caption))
			w.para(depth, fmt.Sprintf("![%s](%s)", alt, url))
		}

	case "video", "file", "pdf":
		f := fileBlock(blk)
		if url, ok := f.Link(); ok {
			label := notion.PlainText(f.Caption)
			if label == "" {
				label = f.Name
			}
			if label == "" {
				label = blk.Type
			}
			w.para(depth, fmt.Sprintf("[%s](%s)", escapeBrackets(label), url))
		}

	case "bookmark", "embed", "link_preview":
		lb := linkBlock(blk)
		if lb != nil && lb.URL != "" {
			label := notion.PlainText(lb.Caption)
			if label == "" {
				label = lb.URL
			}
			w.para(depth, fmt.Sprintf("[%s](%s)", escapeBrackets(label), lb.URL))
		}

	case "equation":
		if blk.Equation != nil {
			w.para(depth, "$$\n"+blk.Equation.Expression+"\n$$")
		}

	case "divider":
		w.para(depth, "---")

	case "table":
		w.table(blk, depth)

	case "child_page", "unsupported":
		// skipped
	}
}

func (w *mdWriter) listChildren(blk *notion.Block, depth int) {
	w.blocks(blk.Children, depth+1)
}

// quote writes text and the rendered children as one blockquote.
func (w *mdWriter) quote(depth int, text string, children []notion.Block) {
	var parts []string
	if text != "" {
		parts = append(parts, text)
	}
	if body := Markdown(children); body != "" {
		parts = append(parts, body)
	}
	if len(parts) == 0 {
		return
	}

	for _, l := range strings.Split(strings.Join(parts, "\n\n"), "\n") {
		if l == "" {
			w.line(depth, ">")
			continue
		}
		w.line(depth, "> "+l)
	}
	w.b.WriteString("\n")
}

func (w *mdWriter) table(blk *notion.Block, depth int) {
	var rows [][]string
	for _, child := range blk.Children {
		if child.Type != "table_row" || child.TableRow == nil {
			continue
		}
		cells := make([]string, 0, len(child.TableRow.Cells))
		for _, cell := range child.TableRow.Cells {
			cells = append(cells, strings.ReplaceAll(richText(cell), "|", `\|`))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	pad := func(r []string) []string {
		for len(r) < width {
			r = append(r, "")
		}
		return r
	}

	header := make([]string, width)
	body := rows
	if blk.Table != nil && blk.Table.HasColumnHeader {
		header = pad(rows[0])
		body = rows[1:]
	}

	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}

	w.line(depth, "| "+strings.Join(header, " | ")+" |")
	w.line(depth, "| "+strings.Join(sep, " | ")+" |")
	for _, r := range body {
		w.line(depth, "| "+strings.Join(pad(r), " | ")+" |")
	}
	w.b.WriteString("\n")
}

func heading(blk *notion.Block) *notion.HeadingBlock {
	switch blk.Type {
	case "heading_1":
		return blk.Heading1
	case "heading_2":
		return blk.Heading2
	default:
		return blk.Heading3
	}
}

func fileBlock(blk *notion.Block) *notion.FileObject {
	switch blk.Type {
	case "video":
		return blk.Video
	case "pdf":
		return blk.PDF
	default:
		return blk.File
	}
}

func linkBlock(blk *notion.Block) *notion.LinkBlock {
	switch blk.Type {
	case "bookmark":
		return blk.Bookmark
	case "embed":
		return blk.Embed
	default:
		return blk.LinkPreview
	}
}

// richText applies annotations segment by segment. Whitespace is kept
// outside the markers, otherwise "** bold**" would not parse.
func richText(rt []notion.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		text := t.PlainText
		if t.Type == "equation" && t.Equation != nil {
			b.WriteString("$" + t.Equation.Expression + "$")
			continue
		}
		if strings.TrimSpace(text) == "" {
			b.WriteString(text)
			continue
		}

		lead := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
		trail := text[len(strings.TrimRight(text, " \t")):]
		core := text[len(lead) : len(text)-len(trail)]

		a := t.Annotations
		if a.Code {
			core = "`" + core + "`"
		}
		if a.Bold {
			core = "**" + core + "**"
		}
		if a.Italic {
			core = "_" + core + "_"
		}
		if a.Strikethrough {
			core = "~~" + core + "~~"
		}
		if href := link(t); href != "" {
			core = "[" + core + "](" + href + ")"
		}
		b.WriteString(lead + core + trail)
	}
	return b.String()
}

func link(t notion.RichText) string {
	if t.Href != nil && *t.Href != "" {
		return *t.Href
	}
	if t.Text != nil && t.Text.Link != nil {
		return t.Text.Link.URL
	}
	return ""
}

func escapeBrackets(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
