package api

import (
	"time"

	"github.com/kvaesitso/kvs/internal/openinghours"
	"github.com/kvaesitso/kvs/internal/search"
)

// SearchRequest starts a search. Filters default to every category with
// network access. Without a timeout the stream stays open, delivering
// updates from live providers, until the client cancels.
type SearchRequest struct {
	Query     string          `json:"query"`
	Filters   *search.Filters `json:"filters,omitempty"`
	TimeoutMS int64           `json:"timeout_ms,omitempty"`
}

// SearchUpdate is one streamed snapshot.
type SearchUpdate struct {
	Seq      int             `json:"seq"`
	Snapshot search.Snapshot `json:"snapshot"`
}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Profile         string           `json:"profile"`
	State           string           `json:"state"`
	Since           time.Time        `json:"since"`
	UptimeMS        int64            `json:"uptime_ms"`
	PID             int              `json:"pid"`
	Counts          map[string]int64 `json:"counts,omitempty"`
	CatalogHash     string           `json:"catalog_hash,omitempty"`
	CatalogImported string           `json:"catalog_imported_at,omitempty"`
	RatesFetched    string           `json:"rates_fetched_at,omitempty"`
	Network         bool             `json:"network"`
}

// HoursRequest asks for an opening_hours expression to be evaluated. A zero
// At means now.
type HoursRequest struct {
	Expression string    `json:"expression"`
	At         time.Time `json:"at,omitzero"`
}

// HoursResponse is the evaluated schedule. Schedule is null when the
// expression holds no rules.
type HoursResponse struct {
	Schedule   *openinghours.Schedule `json:"schedule"`
	Normalized string                 `json:"normalized,omitempty"`
	OpenNow    bool                   `json:"open_now"`
}

// LabelRequest sets a custom label. An empty label removes it.
type LabelRequest struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// LabelsResponse lists the custom labels.
type LabelsResponse struct {
	Labels map[string]string `json:"labels"`
}

// ImportResponse reports a catalog import.
type ImportResponse struct {
	Unchanged  bool           `json:"unchanged"`
	Missing    bool           `json:"missing"`
	Hash       string         `json:"hash,omitempty"`
	Counts     map[string]int `json:"counts,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}
