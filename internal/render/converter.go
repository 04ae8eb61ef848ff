package render

import (
	"context"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/notion"
)

// BlockSource loads the block tree of a page.
type BlockSource interface {
	PageBlocks(ctx context.Context, pageID string) ([]notion.Block, error)
}

// Converter turns a Notion page into display HTML.
type Converter struct {
	source BlockSource
}

func NewConverter(source BlockSource) *Converter {
	return &Converter{source: source}
}

// Convert returns the page body as HTML, or "" when nothing could be
// produced. Failures are logged rather than returned so that a broken page
// never takes down the listing.
func (c *Converter) Convert(ctx context.Context, page notion.Page) string {
	log := logger.With("render")

	blocks, err := c.source.PageBlocks(ctx, page.ID)
	if err != nil {
		log.Error().Err(err).Str("page_id", page.ID).Msg("Error fetching page blocks")
		return ""
	}

	md := Markdown(blocks)
	if md == "" {
		log.Debug().Str("page_id", page.ID).Msg("Page has no renderable content")
		return ""
	}

	out, err := HTML(md)
	if err != nil {
		log.Error().Err(err).Str("page_id", page.ID).Msg("Error rendering markdown")
		return ""
	}
	return out
}
