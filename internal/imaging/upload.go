package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"leafscan/internal/models"
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// NewUploadedImage validates and decodes an upload. The MIME type is sniffed
// from the content when the caller did not declare one.
func NewUploadedImage(filename, mimeType string, data []byte) (models.UploadedImage, error) {
	detected := mimetype.Detect(data).String()
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))

	if !supportedTypes[mimeType] || !supportedTypes[detected] {
		return models.UploadedImage{}, &DecodeError{
			Source: "upload",
			Err:    fmt.Errorf("unsupported image type %q, expected jpg, jpeg or png", detected),
		}
	}

	pixels, err := decode("upload", data)
	if err != nil {
		return models.UploadedImage{}, err
	}

	if filename == "" {
		filename = "upload" + mimetype.Lookup(detected).Extension()
	}

	return models.UploadedImage{
		Filename: filename,
		MIMEType: mimeType,
		Data:     data,
		Pixels:   pixels,
	}, nil
}

// EncodeJPEG encodes an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Base64JPEG encodes an image as base64 JPEG.
func Base64JPEG(img image.Image) (string, error) {
	data, err := EncodeJPEG(img, 90)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
