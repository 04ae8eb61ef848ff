package notion

import (
	"strings"
	"time"
)

// Property types used by the blog database.
const (
	PropertyTitle       = "title"
	PropertyRichText    = "rich_text"
	PropertyDate        = "date"
	PropertyMultiSelect = "multi_select"
	PropertySelect      = "select"
	PropertyCheckbox    = "checkbox"
	PropertyURL         = "url"
)

// File object variants.
const (
	FileExternal = "external"
	FileHosted   = "file"
)

// Page is one row of a Notion database.
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	Cover          *FileObject         `json:"cover"`
	Properties     map[string]Property `json:"properties"`
	URL            string              `json:"url"`
}

// Property is a tagged union; Type names the populated field.
type Property struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	URL         *string        `json:"url,omitempty"`
}

// DateValue holds the raw start/end strings; Notion sends either a date
// ("2024-01-01") or a full timestamp.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href,omitempty"`
	Annotations Annotations  `json:"annotations"`
	Text        *TextContent `json:"text,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
}

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

type Equation struct {
	Expression string `json:"expression"`
}

// FileObject is either an external link or a Notion-hosted file whose URL
// is signed and expires.
type FileObject struct {
	Type     string        `json:"type"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
	Caption  []RichText    `json:"caption,omitempty"`
	Name     string        `json:"name,omitempty"`
}

type ExternalFile struct {
	URL string `json:"url"`
}

type HostedFile struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// Link returns the URL of whichever variant is set.
func (f *FileObject) Link() (string, bool) {
	if f == nil {
		return "", false
	}
	switch f.Type {
	case FileExternal:
		if f.External != nil && f.External.URL != "" {
			return f.External.URL, true
		}
	case FileHosted:
		if f.File != nil && f.File.URL != "" {
			return f.File.URL, true
		}
	}
	return "", false
}

// PlainText concatenates the plain text of every segment.
func PlainText(rt []RichText) string {
	var b strings.Builder
	for _, t := range rt {
		b.WriteString(t.PlainText)
	}
	return b.String()
}

// Text returns the plain text of a title or rich_text property.
func (p Property) Text() (string, bool) {
	var segments []RichText
	switch {
	case len(p.Title) > 0:
		segments = p.Title
	case len(p.RichText) > 0:
		segments = p.RichText
	default:
		return "", false
	}
	s := strings.TrimSpace(PlainText(segments))
	return s, s != ""
}

// Names returns the option names of a multi_select property.
func (p Property) Names() ([]string, bool) {
	if len(p.MultiSelect) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(p.MultiSelect))
	for _, opt := range p.MultiSelect {
		if opt.Name != "" {
			names = append(names, opt.Name)
		}
	}
	return names, len(names) > 0
}

// Block is one node of a page's content tree. Exactly one payload field
// matching Type is set; Children is filled by Client.PageBlocks.
type Block struct {
	Object      string    `json:"object"`
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	HasChildren bool      `json:"has_children"`
	Archived    bool      `json:"archived"`
	CreatedTime time.Time `json:"created_time"`

	Paragraph        *TextBlock     `json:"paragraph,omitempty"`
	Heading1         *HeadingBlock  `json:"heading_1,omitempty"`
	Heading2         *HeadingBlock  `json:"heading_2,omitempty"`
	Heading3         *HeadingBlock  `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock     `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock     `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoBlock     `json:"to_do,omitempty"`
	Toggle           *TextBlock     `json:"toggle,omitempty"`
	Quote            *TextBlock     `json:"quote,omitempty"`
	Callout          *CalloutBlock  `json:"callout,omitempty"`
	Code             *CodeBlock     `json:"code,omitempty"`
	Image            *FileObject    `json:"image,omitempty"`
	Video            *FileObject    `json:"video,omitempty"`
	File             *FileObject    `json:"file,omitempty"`
	PDF              *FileObject    `json:"pdf,omitempty"`
	Bookmark         *LinkBlock     `json:"bookmark,omitempty"`
	Embed            *LinkBlock     `json:"embed,omitempty"`
	LinkPreview      *LinkBlock     `json:"link_preview,omitempty"`
	Equation         *Equation      `json:"equation,omitempty"`
	Divider          *struct{}      `json:"divider,omitempty"`
	Table            *TableBlock    `json:"table,omitempty"`
	TableRow         *TableRowBlock `json:"table_row,omitempty"`
	ChildPage        *ChildPage     `json:"child_page,omitempty"`

	Children []Block `json:"-"`
}

type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
}

type HeadingBlock struct {
	RichText     []RichText `json:"rich_text"`
	IsToggleable bool       `json:"is_toggleable"`
}

type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

type CalloutBlock struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
}

type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
	Caption  []RichText `json:"caption,omitempty"`
}

type LinkBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

type TableBlock struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}

type ChildPage struct {
	Title string `json:"title"`
}
