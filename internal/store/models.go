package store

import (
	"time"

	"tvcore/internal/middleware"
	"tvcore/internal/routes"
)

// NoService is the service index stored for IP channels.
const NoService = -1

// Channel is one persisted catalog entry.
type Channel struct {
	ID            int64                  `json:"id" csv:"id"`
	DisplayNumber string                 `json:"display_number" csv:"display_number"`
	Name          string                 `json:"name" csv:"name"`
	URL           string                 `json:"url,omitempty" csv:"url,omitempty"`
	Technology    routes.Technology      `json:"technology" csv:"technology"`
	ServiceIndex  int                    `json:"service_index" csv:"service_index"`
	ServiceKind   middleware.ServiceKind `json:"service_kind" csv:"service_kind"`
	Frequency     int                    `json:"frequency,omitempty" csv:"frequency,omitempty"`
	CreatedAt     time.Time              `json:"created_at" csv:"-"`
}

// IsIP reports whether the channel is addressed by URL rather than by a
// middleware service index.
func (c Channel) IsIP() bool {
	return c.Technology.IsIP()
}

// Program is one persisted guide event.
type Program struct {
	ID          int64     `json:"id"`
	ChannelID   int64     `json:"channel_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Rating      string    `json:"rating,omitempty"`
	Genre       string    `json:"genre,omitempty"`
}

// Contains reports whether at falls within [Start, End).
func (p Program) Contains(at time.Time) bool {
	return !at.Before(p.Start) && at.Before(p.End)
}

// Stats summarizes row counts.
type Stats struct {
	Channels    int `json:"channels"`
	Programs    int `json:"programs"`
	Frequencies int `json:"acquired_frequencies"`
}

// DatabaseHealth captures diagnostic information about the database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}
