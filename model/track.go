package model

import (
	"database/sql"
	"time"
)

// Track represents one uploaded audio clip in the catalog.
// AudioObjectKey is the stable object-store key; the time-limited fetch URL
// derived from it is resolved per request and never stored.
type Track struct {
	ID             int64           `json:"id"`
	UploaderID     int64           `json:"uploaderId"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	AudioObjectKey string          `json:"-"` // object-store key, not exposed in API directly
	Duration       sql.NullFloat64 `json:"-"` // duration in seconds, absent if not measured client-side
	PlayCount      int64           `json:"playCount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// DisplayTrack is the read-time view of a Track joined with the uploader's
// display name and a resolved audio URL. AudioURL is null when the stored
// object could not be resolved; the rest of the fields still render.
type DisplayTrack struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	UploaderName string    `json:"uploaderName"`
	AudioURL     *string   `json:"audioUrl"`
	PlayCount    int64     `json:"playCount"`
	Duration     *float64  `json:"durationSeconds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UploadSlot is a single-use, time-limited endpoint for one direct binary
// upload. ObjectKey is what the client hands back at registration.
type UploadSlot struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}
