package models

import (
	"math"
	"strconv"
	"strings"
)

const (
	unknownLabel      = "Unknown"
	defaultConfidence = "0%"
	healthyLabel      = "healthy"
)

// Box is a detection bounding box in pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Degenerate reports whether the box has no area.
func (b Box) Degenerate() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// ResultRecord is the normalized form of a RawDetection.
type ResultRecord struct {
	Crop            string
	Disease         string
	ConfidenceText  string
	ConfidenceRatio float64
	Box             Box
	BoxLabel        string
	IsHealthy       bool
}

// NewResultRecord normalizes a raw detection. It never fails: absent or
// malformed fields fall back to their defaults.
func NewResultRecord(raw RawDetection) ResultRecord {
	record := ResultRecord{
		Crop:           valueOr(raw.Crop, unknownLabel),
		Disease:        valueOr(raw.Disease, unknownLabel),
		ConfidenceText: defaultConfidence,
		BoxLabel:       valueOr(raw.Box, ""),
		Box: Box{
			X1: coordinate(raw.X1),
			Y1: coordinate(raw.Y1),
			X2: coordinate(raw.X2),
			Y2: coordinate(raw.Y2),
		},
	}
	if raw.Confidence != nil {
		record.ConfidenceText = raw.Confidence.Text
	}
	record.ConfidenceRatio = ParseConfidence(record.ConfidenceText)
	record.IsHealthy = strings.EqualFold(strings.TrimSpace(record.Disease), healthyLabel)
	return record
}

// ParseConfidence turns "87.5%" or "87.5" into 0.875. Text that does not
// parse as a finite number yields 0. The result is clamped to [0, 1].
func ParseConfidence(raw string) float64 {
	text := strings.TrimSpace(raw)
	text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	if text == "" {
		return 0
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	ratio := value / 100
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// Color is the display colour of the record: green when healthy, red otherwise.
func (r ResultRecord) Color() string {
	if r.IsHealthy {
		return "green"
	}
	return "red"
}

// SummaryRow returns the record as a row of the summary table.
func (r ResultRecord) SummaryRow() SummaryRow {
	return SummaryRow{
		Box:        r.BoxLabel,
		Crop:       r.Crop,
		Disease:    r.Disease,
		Confidence: r.ConfidenceText,
	}
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func coordinate(v *float64) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return int(math.Round(*v))
}
