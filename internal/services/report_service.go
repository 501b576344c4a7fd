package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"leafscan/internal/config"
	"leafscan/internal/imaging"
	"leafscan/internal/metrics"
	"leafscan/internal/models"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// ReportService runs one upload through detection and report assembly
type ReportService struct {
	config     *config.Config
	logger     *zap.Logger
	client     *DetectionClient
	assembler  *ReportAssembler
	stats      *Stats
	statsMutex sync.RWMutex
	startedAt  time.Time
}

// Stats keeps track of service statistics
type Stats struct {
	TotalRequests       int64
	Successful          int64
	Failed              map[string]int64
	HealthyDetected     int64
	DiseasedDetected    int64
	TotalProcessingTime time.Duration
}

// NewReportService creates a new report service
func NewReportService(config *config.Config, logger *zap.Logger) *ReportService {
	return &ReportService{
		config:    config,
		logger:    logger,
		client:    NewDetectionClient(config.Client(), logger),
		assembler: NewReportAssembler(logger),
		stats:     &Stats{Failed: make(map[string]int64)},
		startedAt: time.Now(),
	}
}

// MaxFileSize returns the upload limit in bytes, or 0 when uploads are unlimited.
func (s *ReportService) MaxFileSize() int64 {
	if s.config.MaxFileSizeMB <= 0 {
		return 0
	}
	return s.config.MaxFileSizeBytes()
}

// Ready returns nil when a detection request could be sent with the current configuration.
func (s *ReportService) Ready() error {
	return s.client.Config().Validate()
}

// Analyze decodes the upload, sends it for detection and assembles the report.
// A decode failure of the upload aborts; the report itself never fails.
func (s *ReportService) Analyze(ctx context.Context, filename, mimeType string, data []byte) (*models.Report, error) {
	startTime := time.Now()

	report, err := s.analyze(ctx, filename, mimeType, data)

	processingTime := time.Since(startTime)
	s.updateStats(report, err, processingTime)

	if err != nil {
		s.logger.Warn("Detection failed",
			zap.String("filename", filename),
			zap.String("category", Category(err)),
			zap.Duration("processing_time", processingTime),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Report assembled",
		zap.String("report_id", report.ID),
		zap.String("filename", filename),
		zap.Int("detections", len(report.Detections)),
		zap.Bool("annotated", report.AnnotatedImage != nil),
		zap.Duration("processing_time", processingTime),
	)
	return report, nil
}

func (s *ReportService) analyze(ctx context.Context, filename, mimeType string, data []byte) (*models.Report, error) {
	if limit := s.MaxFileSize(); limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, s.config.MaxFileSizeMB)
	}

	upload, err := imaging.NewUploadedImage(filename, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}

	start := time.Now()
	resp, err := s.client.Detect(ctx, s.client.NewRequest(upload))
	metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	return s.assembler.Assemble(upload.Pixels, resp), nil
}

// GetStats returns service statistics
func (s *ReportService) GetStats() *models.StatsResponse {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	var avgResponseTimeMs float64
	if s.stats.TotalRequests > 0 {
		avgResponseTimeMs = float64(s.stats.TotalProcessingTime.Milliseconds()) / float64(s.stats.TotalRequests)
	}

	failed := make(map[string]int64, len(s.stats.Failed))
	for category, count := range s.stats.Failed {
		failed[category] = count
	}

	return &models.StatsResponse{
		TotalRequests:     s.stats.TotalRequests,
		Successful:        s.stats.Successful,
		Failed:            failed,
		HealthyDetected:   s.stats.HealthyDetected,
		DiseasedDetected:  s.stats.DiseasedDetected,
		AvgResponseTimeMs: avgResponseTimeMs,
		UptimeSeconds:     time.Since(s.startedAt).Seconds(),
	}
}

// updateStats updates service statistics
func (s *ReportService) updateStats(report *models.Report, err error, processingTime time.Duration) {
	category := Category(err)
	metrics.DetectionRequests.WithLabelValues(category).Inc()

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TotalRequests++
	s.stats.TotalProcessingTime += processingTime
	if err != nil {
		s.stats.Failed[category]++
		return
	}

	s.stats.Successful++
	for _, detection := range report.Detections {
		if detection.Record.IsHealthy {
			s.stats.HealthyDetected++
			metrics.LeavesDetected.WithLabelValues("healthy").Inc()
		} else {
			s.stats.DiseasedDetected++
			metrics.LeavesDetected.WithLabelValues("diseased").Inc()
		}
	}
}

// Category names the failure category of err, or "ok" for nil.
func Category(err error) string {
	var clientErr *ClientError
	var configErr *config.ConfigError
	var decodeErr *imaging.DecodeError

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &clientErr):
		return string(clientErr.Kind)
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Message()
	}

	switch Category(err) {
	case "config":
		return "The detection service is not configured."
	case "decode":
		return "The uploaded file is not a valid jpg, jpeg or png image."
	case "too_large":
		return "The uploaded file is too large."
	case "canceled":
		return "The request was cancelled."
	default:
		return "Something went wrong while processing the image."
	}
}
