package storage

import (
	"time"
)

// MaxHistory is the number of recent files kept.
const MaxHistory = 10

// HistoryEntry records an export file that was opened.
type HistoryEntry struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	MessageCount int       `json:"message_count"`
	LastOpened   time.Time `json:"last_opened"`
}

// Preference keys.
const (
	PrefViewMode = "view_mode"
	PrefLastFile = "last_file"
)
