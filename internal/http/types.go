package http

import "github.com/fyrsmithlabs/actionitems/internal/task"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	// Telemetry is "ok", "degraded" or "off"; omitted when the server was
	// built without a telemetry instance.
	Telemetry string `json:"telemetry,omitempty"`
}

// ExtractResponse is the response body for POST /api/v1/extract. The
// result fields are inlined so the body reads as the plain result wrapper
// with extras.
type ExtractResponse struct {
	*task.Result
	Summary task.Summary `json:"summary"`
	// SegmentErrors counts segments that were not valid JSON objects.
	SegmentErrors int    `json:"segment_errors"`
	ReferenceDate string `json:"reference_date,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}
