package models

import "time"

// Post is a published blog post as handed to the presentation layer.
type Post struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"published_at"`
	LastEditedAt time.Time `json:"last_edited_at,omitempty"`
	Summary      string    `json:"summary"`
	Image        string    `json:"image,omitempty"`
	Tags         []string  `json:"tags"`
	Source       string    `json:"source"`
}

// Untitled is the title given to pages without any title property.
const Untitled = "Untitled"
