package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leafscan/internal/models"
	"leafscan/internal/services"
)

func TestCaption(t *testing.T) {
	diseased := models.ResultRecord{Crop: "Tomato", Disease: "Early Blight", ConfidenceText: "92%"}
	require.Equal(t, "🔴 Tomato\nDisease: Early Blight\nConfidence: 92%", caption(diseased))

	healthy := models.ResultRecord{Crop: "Apple", Disease: "Healthy", ConfidenceText: "80%", IsHealthy: true}
	require.Equal(t, "🟢 Apple\nDisease: Healthy\nConfidence: 80%", caption(healthy))
}

func TestFormatSummary(t *testing.T) {
	summary := formatSummary([]models.SummaryRow{
		{Box: "b1", Crop: "Tomato", Disease: "Early Blight", Confidence: "92%"},
		{Crop: "Unknown", Disease: "Unknown", Confidence: "0%"},
	})

	require.Equal(t, "📊 Summary\n\nb1 | Tomato | Early Blight | 92%\n#2 | Unknown | Unknown | 0%", summary)
}

func TestErrorText(t *testing.T) {
	timeout := fmt.Errorf("detection failed: %w", &services.ClientError{Kind: services.KindTimeout})
	require.Equal(t, "⏳ Request timed out. The model may be loading.\n\n"+msgRetry, errorText(timeout))

	rejected := &services.ClientError{Kind: services.KindServiceError, StatusCode: 500, Body: "boom"}
	require.Equal(t, "❌ The detection service rejected the request (status 500).\n\nboom\n\n"+msgRetry, errorText(rejected))

	badRequest := &services.ClientError{Kind: services.KindServiceError, StatusCode: 422}
	require.Equal(t, "❌ The detection service rejected the request (status 422).", errorText(badRequest))

	require.Equal(t, "❌ The uploaded file is too large.", errorText(services.ErrFileTooLarge))
}

func TestBot_FetchLimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	limited := &Bot{httpClient: server.Client(), maxSize: 10}
	data, err := limited.fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, data, 11)

	unlimited := &Bot{httpClient: server.Client()}
	data, err = unlimited.fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, data, 100)
}

func TestBot_FetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	b := &Bot{httpClient: &http.Client{Timeout: 50 * time.Millisecond}}
	start := time.Now()
	_, err := b.fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestBot_FetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	b := &Bot{httpClient: server.Client()}
	_, err := b.fetch(context.Background(), server.URL)
	require.ErrorContains(t, err, "status code 404")
}
