package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"leafscan/internal/config"
	"leafscan/internal/models"
)

const (
	maxResponseBytes  = 64 * 1024 * 1024
	maxErrorBodyBytes = 4 * 1024
)

// ErrorKind classifies a failed detection request.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionFailed  ErrorKind = "connection_failed"
	KindServiceError      ErrorKind = "service_error"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// ClientError is returned by DetectionClient.Detect when the request fails.
type ClientError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Detail     string
	Err        error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case KindServiceError:
		return fmt.Sprintf("detection service returned status %d: %s", e.StatusCode, e.Body)
	case KindTimeout:
		return "detection request timed out"
	default:
		return fmt.Sprintf("detection %s: %s", strings.ReplaceAll(string(e.Kind), "_", " "), e.Detail)
	}
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for the error category.
func (e *ClientError) Message() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timed out. The model may be loading."
	case KindConnectionFailed:
		return "API connection failed."
	case KindServiceError:
		return fmt.Sprintf("The detection service rejected the request (status %d).", e.StatusCode)
	default:
		return "The detection service returned an unreadable response."
	}
}

// Retryable reports whether resubmitting the same image may succeed.
func (e *ClientError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnectionFailed ||
		(e.Kind == KindServiceError && e.StatusCode >= 500)
}

// DetectionRequest is one outbound call to the detection service.
type DetectionRequest struct {
	Endpoint     string
	Token        string
	RequireToken bool
	Timeout      time.Duration
	Image        models.UploadedImage
}

// DetectionClient sends images to the remote detect-and-classify service.
// It performs exactly one HTTP call per Detect and never retries.
type DetectionClient struct {
	config     config.ClientConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewDetectionClient creates a new detection client
func NewDetectionClient(cfg config.ClientConfig, logger *zap.Logger) *DetectionClient {
	return &DetectionClient{
		config:     cfg,
		logger:     logger,
		httpClient: &http.Client{},
	}
}

// Config returns the client configuration.
func (c *DetectionClient) Config() config.ClientConfig {
	return c.config
}

// NewRequest builds a request for img from the client configuration.
func (c *DetectionClient) NewRequest(img models.UploadedImage) DetectionRequest {
	return DetectionRequest{
		Endpoint:     c.config.Endpoint,
		Token:        c.config.Token,
		RequireToken: c.config.RequireToken,
		Timeout:      c.config.Timeout,
		Image:        img,
	}
}

// Detect posts the image and decodes the response envelope. Failures are
// either a *config.ConfigError, raised before any network activity, or a
// *ClientError. Cancelling ctx returns ctx.Err().
func (c *DetectionClient) Detect(ctx context.Context, req DetectionRequest) (*models.DetectionResponse, error) {
	clientCfg := config.ClientConfig{
		Endpoint:     req.Endpoint,
		Token:        req.Token,
		RequireToken: req.RequireToken,
		Timeout:      req.Timeout,
	}
	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(req.Image)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, body)
	if err != nil {
		return nil, &config.ConfigError{Field: "endpoint", Reason: err.Error()}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	c.logger.Debug("Sending detection request",
		zap.String("endpoint", req.Endpoint),
		zap.String("filename", req.Image.Filename),
		zap.Int("bytes", len(req.Image.Data)),
		zap.Bool("authenticated", req.Token != ""),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	c.logger.Debug("Detection response received",
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Kind:       KindServiceError,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBodyBytes),
		}
	}

	if len(data) > maxResponseBytes {
		return nil, &ClientError{
			Kind:   KindMalformedResponse,
			Detail: fmt.Sprintf("response body exceeds %d bytes", maxResponseBytes),
		}
	}

	return decodeResponse(data)
}

func (c *DetectionClient) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Warn("Detection request timed out", zap.Error(err))
		return &ClientError{Kind: KindTimeout, Detail: err.Error(), Err: err}
	}

	c.logger.Warn("Detection request failed", zap.Error(err))
	return &ClientError{Kind: KindConnectionFailed, Detail: err.Error(), Err: err}
}

func decodeResponse(data []byte) (*models.DetectionResponse, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ClientError{
			Kind:   KindMalformedResponse,
			Detail: "response body is not a JSON object",
		}
	}

	var out models.DetectionResponse
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &ClientError{
			Kind:   KindMalformedResponse,
			Detail: err.Error(),
			Err:    err,
		}
	}

	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(img models.UploadedImage) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(img.Filename)))
	contentType := img.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
