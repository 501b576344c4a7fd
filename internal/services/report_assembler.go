package services

import (
	"image"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leafscan/internal/imaging"
	"leafscan/internal/metrics"
	"leafscan/internal/models"
)

// ReportAssembler turns a detection response into a Report.
type ReportAssembler struct {
	logger *zap.Logger
}

// NewReportAssembler creates a new report assembler
func NewReportAssembler(logger *zap.Logger) *ReportAssembler {
	return &ReportAssembler{logger: logger}
}

// Assemble builds the report for original. It never fails: a missing or
// undecodable annotated image leaves Report.AnnotatedImage nil.
func (a *ReportAssembler) Assemble(original image.Image, resp *models.DetectionResponse) *models.Report {
	if resp == nil {
		resp = &models.DetectionResponse{}
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		Detections:  make([]models.ReportDetection, 0, len(resp.Results)),
		SummaryRows: make([]models.SummaryRow, 0, len(resp.Results)),
	}

	if resp.AnnotatedImage != nil && *resp.AnnotatedImage != "" {
		annotated, err := imaging.DecodeBase64(*resp.AnnotatedImage)
		if err != nil {
			metrics.AnnotatedImageFailures.Inc()
			a.logger.Warn("Annotated image could not be decoded",
				zap.String("report_id", report.ID),
				zap.Error(err),
			)
		} else {
			report.AnnotatedImage = annotated
		}
	}

	for _, raw := range resp.Results {
		record := models.NewResultRecord(raw)
		box := record.Box

		report.Detections = append(report.Detections, models.ReportDetection{
			Record: record,
			Image:  imaging.Crop(original, box.X1, box.Y1, box.X2, box.Y2),
		})
		report.SummaryRows = append(report.SummaryRows, record.SummaryRow())
	}

	report.NoDetections = len(report.Detections) == 0

	return report
}
