package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"leafscan/internal/imaging"
	"leafscan/internal/models"
	"leafscan/internal/services"
)

// multipartOverhead is the room left for boundaries and part headers on top of the file size limit.
const multipartOverhead = 64 * 1024

// ReportHandler handles image upload and report requests
type ReportHandler struct {
	service *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

// Index renders the upload form
func (h *ReportHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// Report handles a form upload and renders the HTML report
func (h *ReportHandler) Report(c *gin.Context) {
	report, err := h.analyzeUpload(c)
	if err != nil {
		c.HTML(statusFor(err), "error.html", errorResponse(err))
		return
	}

	view, err := buildReportView(report)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", errorResponse(err))
		return
	}

	c.HTML(http.StatusOK, "report.html", view)
}

// Detect handles multipart uploads and returns the report as JSON
func (h *ReportHandler) Detect(c *gin.Context) {
	report, err := h.analyzeUpload(c)
	if err != nil {
		c.JSON(statusFor(err), errorResponse(err))
		return
	}

	view, err := buildReportView(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ReportHandler) analyzeUpload(c *gin.Context) (*models.Report, error) {
	limit := h.service.MaxFileSize()
	if limit > 0 {
		if c.Request.ContentLength > limit+multipartOverhead {
			return nil, fmt.Errorf("%w: request body is %d bytes", services.ErrFileTooLarge, c.Request.ContentLength)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", services.ErrFileTooLarge, maxBytesErr.Limit)
		}
		return nil, &imaging.DecodeError{Source: "upload", Err: fmt.Errorf("no file in form: %w", err)}
	}

	if limit > 0 && file.Size > limit {
		return nil, fmt.Errorf("%w: file is %d bytes", services.ErrFileTooLarge, file.Size)
	}

	// Open the uploaded file
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return h.service.Analyze(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), fileBytes)
}

func buildReportView(report *models.Report) (models.ReportView, error) {
	view := models.ReportView{
		ID:           report.ID,
		NoDetections: report.NoDetections,
		Detections:   make([]models.DetectionView, 0, len(report.Detections)),
		Summary:      report.SummaryRows,
	}

	if report.AnnotatedImage != nil {
		encoded, err := imaging.Base64JPEG(report.AnnotatedImage)
		if err != nil {
			return models.ReportView{}, err
		}
		view.AnnotatedImage = encoded
	}

	for _, detection := range report.Detections {
		record := detection.Record
		encoded, err := imaging.Base64JPEG(detection.Image)
		if err != nil {
			return models.ReportView{}, err
		}

		view.Detections = append(view.Detections, models.DetectionView{
			Crop:            record.Crop,
			Disease:         record.Disease,
			Confidence:      record.ConfidenceText,
			ConfidenceRatio: record.ConfidenceRatio,
			Box:             record.Box,
			Healthy:         record.IsHealthy,
			Color:           record.Color(),
			Image:           encoded,
		})
	}

	return view, nil
}

func errorResponse(err error) models.ErrorResponse {
	resp := models.ErrorResponse{
		Error:    services.UserMessage(err),
		Category: services.Category(err),
	}

	var clientErr *services.ClientError
	if errors.As(err, &clientErr) {
		resp.Retryable = clientErr.Retryable()
		if clientErr.Kind == services.KindServiceError {
			resp.Detail = clientErr.Body
		} else {
			resp.Detail = clientErr.Detail
		}
	}

	return resp
}

func statusFor(err error) int {
	switch services.Category(err) {
	case "decode":
		return http.StatusBadRequest
	case "too_large":
		return http.StatusRequestEntityTooLarge
	case "config", "canceled":
		return http.StatusServiceUnavailable
	case string(services.KindTimeout):
		return http.StatusGatewayTimeout
	case string(services.KindConnectionFailed), string(services.KindServiceError), string(services.KindMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
