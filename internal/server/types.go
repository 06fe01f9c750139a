package server

import (
	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/preview"
)

// HealthResponse is the payload for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Session bool   `json:"session"`
}

// UploadResponse is the payload for POST /upload.
type UploadResponse struct {
	SessionID      string                          `json:"session_id"`
	FileName       string                          `json:"file_name"`
	Stats          analysis.Snapshot               `json:"stats"`
	MissingInfo    map[string]analysis.ColumnCount `json:"missing_info"`
	OutliersInfo   map[string]analysis.ColumnCount `json:"outliers_info"`
	Preview        preview.Table                   `json:"preview"`
	Visualizations []preview.Aggregate             `json:"visualizations"`
	OutlierIndices []preview.Coordinate            `json:"outlier_indices"`
}

// CleanResponse is the payload for POST /clean.
type CleanResponse struct {
	Summary         cleaning.Summary    `json:"summary"`
	StatsBefore     analysis.Snapshot   `json:"stats_before"`
	StatsAfter      analysis.Snapshot   `json:"stats_after"`
	Preview         preview.Table       `json:"preview"`
	OriginalPreview preview.Table       `json:"original_preview"`
	Visualizations  []preview.Aggregate `json:"visualizations"`
	Ignored         []string            `json:"ignored,omitempty"`
}

// MessageResponse carries a human-readable status line.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
