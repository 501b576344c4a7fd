package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leafscan/internal/models"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestReportAssembler_Assemble(t *testing.T) {
	original := solidImage(640, 480)
	annotated := base64.StdEncoding.EncodeToString(pngBytes(t, solidImage(320, 240)))

	resp := &models.DetectionResponse{
		AnnotatedImage: &annotated,
		Results: []models.RawDetection{
			{
				Crop:       strPtr("Tomato"),
				Disease:    strPtr("Early Blight"),
				Confidence: &models.Confidence{Text: "92%"},
				X1:         floatPtr(10),
				Y1:         floatPtr(10),
				X2:         floatPtr(50),
				Y2:         floatPtr(50),
			},
			{
				Crop:    strPtr("Apple"),
				Disease: strPtr("healthy"),
			},
		},
	}

	report := NewReportAssembler(zap.NewNop()).Assemble(original, resp)

	require.NotEmpty(t, report.ID)
	require.NotNil(t, report.AnnotatedImage)
	require.Equal(t, image.Rect(0, 0, 320, 240), report.AnnotatedImage.Bounds())
	require.False(t, report.NoDetections)
	require.Len(t, report.Detections, 2)
	require.Len(t, report.SummaryRows, 2)

	first := report.Detections[0]
	require.Equal(t, "Tomato", first.Record.Crop)
	require.InDelta(t, 0.92, first.Record.ConfidenceRatio, 1e-9)
	require.False(t, first.Record.IsHealthy)
	require.Equal(t, image.Rect(0, 0, 40, 40), first.Image.Bounds())

	second := report.Detections[1]
	require.True(t, second.Record.IsHealthy)
	require.Equal(t, "0%", second.Record.ConfidenceText)
	require.Equal(t, original.Bounds(), second.Image.Bounds())

	require.Equal(t, models.SummaryRow{Crop: "Tomato", Disease: "Early Blight", Confidence: "92%"}, report.SummaryRows[0])
	require.Equal(t, models.SummaryRow{Crop: "Apple", Disease: "healthy", Confidence: "0%"}, report.SummaryRows[1])
}

func TestReportAssembler_EmptyResults(t *testing.T) {
	assembler := NewReportAssembler(zap.NewNop())

	report := assembler.Assemble(solidImage(10, 10), &models.DetectionResponse{})
	require.True(t, report.NoDetections)
	require.Empty(t, report.Detections)
	require.Empty(t, report.SummaryRows)
	require.Nil(t, report.AnnotatedImage)

	report = assembler.Assemble(solidImage(10, 10), nil)
	require.True(t, report.NoDetections)
}

func TestReportAssembler_InvalidAnnotatedImage(t *testing.T) {
	invalid := "this is not base64 image data"
	resp := &models.DetectionResponse{
		AnnotatedImage: &invalid,
		Results:        []models.RawDetection{{Crop: strPtr("Corn")}},
	}

	report := NewReportAssembler(zap.NewNop()).Assemble(solidImage(10, 10), resp)
	require.Nil(t, report.AnnotatedImage)
	require.Len(t, report.Detections, 1)
	require.Equal(t, "Corn", report.Detections[0].Record.Crop)
}

func TestReportAssembler_UniqueIDs(t *testing.T) {
	assembler := NewReportAssembler(zap.NewNop())
	first := assembler.Assemble(solidImage(4, 4), nil)
	second := assembler.Assemble(solidImage(4, 4), nil)
	require.NotEqual(t, first.ID, second.ID)
}
