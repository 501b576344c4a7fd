package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// DecodeError reports image bytes that could not be decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode decodes JPEG or PNG bytes into an RGBA buffer.
func Decode(data []byte) (*image.RGBA, error) {
	return decode("image", data)
}

// DecodeBase64 decodes base64-encoded JPEG or PNG bytes. A data URL prefix is accepted.
func DecodeBase64(text string) (*image.RGBA, error) {
	// Remove data URL prefix if present
	if idx := strings.Index(text, ","); idx != -1 && strings.HasPrefix(text, "data:") {
		text = text[idx+1:]
	}
	text = strings.Join(strings.Fields(text), "")

	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(text)
		if rawErr != nil {
			return nil, &DecodeError{Source: "base64 image", Err: err}
		}
	}

	return decode("base64 image", data)
}

func decode(source string, data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("empty data")}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}

	return toRGBA(img), nil
}

// Crop returns the sub-image bounded by (x1,y1)-(x2,y2), clamped to the image.
// A rectangle with no area after clamping yields img itself.
func Crop(img image.Image, x1, y1, x2, y2 int) image.Image {
	if x2 <= x1 || y2 <= y1 {
		return img
	}

	// Clamp to image bounds
	rect := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if rect.Empty() {
		return img
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)
	return crop
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
