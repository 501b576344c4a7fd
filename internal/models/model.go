package models

import (
	"image"
)

// Report is the assembled result of one detection request.
type Report struct {
	ID             string
	AnnotatedImage image.Image // nil when the service sent none or it failed to decode
	Detections     []ReportDetection
	SummaryRows    []SummaryRow
	NoDetections   bool
}

// ReportDetection pairs a normalized record with its cropped sub-image.
type ReportDetection struct {
	Record ResultRecord
	Image  image.Image
}

// SummaryRow is one row of the summary table
type SummaryRow struct {
	Box        string `json:"Box"`
	Crop       string `json:"Crop"`
	Disease    string `json:"Disease"`
	Confidence string `json:"Confidence"`
}

// ReportView represents the report as served to the browser and API clients
type ReportView struct {
	ID             string          `json:"id"`
	AnnotatedImage string          `json:"annotated_image,omitempty"`
	NoDetections   bool            `json:"no_detections"`
	Detections     []DetectionView `json:"detections"`
	Summary        []SummaryRow    `json:"summary"`
}

// DetectionView represents one detection in a ReportView
type DetectionView struct {
	Crop            string  `json:"crop"`
	Disease         string  `json:"disease"`
	Confidence      string  `json:"confidence"`
	ConfidenceRatio float64 `json:"confidence_ratio"`
	Box             Box     `json:"box"`
	Healthy         bool    `json:"healthy"`
	Color           string  `json:"color"`
	Image           string  `json:"image,omitempty"`
}

// StatsResponse represents statistics response
type StatsResponse struct {
	TotalRequests     int64            `json:"total_requests"`
	Successful        int64            `json:"successful"`
	Failed            map[string]int64 `json:"failed"`
	HealthyDetected   int64            `json:"healthy_detected"`
	DiseasedDetected  int64            `json:"diseased_detected"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	UptimeSeconds     float64          `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Category  string `json:"category,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable"`
}
