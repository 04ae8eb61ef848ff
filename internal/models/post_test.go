package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONShape(t *testing.T) {
	post := Post{
		ID:          "page-1",
		Slug:        "hello-world",
		Title:       "Hello",
		PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Tags:        []string{},
		Source:      "<p>hi</p>",
	}

	data, err := json.Marshal(post)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "hello-world", result["slug"])
	assert.Equal(t, "2024-06-01T00:00:00Z", result["published_at"])
	assert.Equal(t, []interface{}{}, result["tags"], "empty tags must encode as [] not null")
	assert.Equal(t, "", result["summary"])
	_, hasImage := result["image"]
	assert.False(t, hasImage, "image is omitted when empty")
}
