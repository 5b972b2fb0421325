package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is a position in a change stream ordered by (UpdatedAt, ID).
type Cursor struct {
	UpdatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// FeedCursor remembers where each entity stream of a change feed stopped.
// A nil position means the stream has not been read past `since` yet.
type FeedCursor struct {
	Since        time.Time `json:"since"`
	Sessions     *Cursor   `json:"s,omitempty"`
	Observations *Cursor   `json:"o,omitempty"`
	Photos       *Cursor   `json:"p,omitempty"`
}

// Encode returns the opaque token handed to clients.
func (c FeedCursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeFeedCursor parses a token produced by Encode.
func DecodeFeedCursor(token string) (FeedCursor, error) {
	var c FeedCursor
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	return c, nil
}

// ChangeSet is one page of the change feed.
type ChangeSet struct {
	Sessions     []*Session     `json:"sessions"`
	Observations []*Observation `json:"observations"`
	Photos       []*Photo       `json:"photos"`
	// Watermark is the greatest updatedAt among returned rows, or the
	// requested since when the page is empty.
	Watermark  time.Time `json:"watermark"`
	NextCursor string    `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
}
