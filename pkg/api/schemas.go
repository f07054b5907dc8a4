package api

import (
	"encoding/json"
	"net/http"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobs"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

// ExportRequest is the body of POST /v1/exports. Zero-valued encoding
// fields fall back to the server's configured defaults.
type ExportRequest struct {
	Input string                  `json:"input"`
	Edit  pipeline.EditDescriptor `json:"edit"`

	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
	FPS     float64  `json:"fps,omitempty"`
	Quality int      `json:"quality,omitempty"`
	Bitrate int      `json:"bitrate,omitempty"`
	OutroMs int      `json:"outro_ms,omitempty"`
	Codecs  []string `json:"codecs,omitempty"`
}

// ExportResponse acknowledges an accepted export.
type ExportResponse struct {
	JobID string `json:"job_id"`
}

// JobResponse is the wire shape of a job snapshot.
type JobResponse struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Progress pipeline.Progress `json:"progress"`
	Error    string            `json:"error,omitempty"`

	FrameCount  int    `json:"frame_count,omitempty"`
	DurationMs  int    `json:"duration_ms,omitempty"`
	OutputBytes int    `json:"output_bytes,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// JobsResponse wraps a job listing.
type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// ErrorResponse is the wire shape of all error replies.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JobToResponse converts a job snapshot to its wire shape.
func JobToResponse(j jobs.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		Progress:    j.Progress,
		Error:       j.Error,
		FrameCount:  j.FrameCount,
		DurationMs:  j.DurationMs,
		OutputBytes: j.OutputBytes,
		MimeType:    j.MimeType,
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}
