package models

import (
	"bytes"
	"encoding/json"
	"image"
)

// UploadedImage is the user's upload, decoded once and read-only afterwards.
type UploadedImage struct {
	Filename string
	MIMEType string
	Data     []byte
	Pixels   *image.RGBA
}

// DetectionResponse is the envelope returned by the detection service.
type DetectionResponse struct {
	AnnotatedImage *string        `json:"annotated_image"`
	Results        []RawDetection `json:"results"`
}

// RawDetection is one untrusted detection from the wire. Every field is optional.
type RawDetection struct {
	Crop       *string
	Disease    *string
	Confidence *Confidence
	X1         *float64
	Y1         *float64
	X2         *float64
	Y2         *float64
	Box        *string
}

// Confidence keeps the wire form of a confidence value: either a string
// such as "87.5%" or a bare JSON number.
type Confidence struct {
	Text    string
	Numeric bool
}

// UnmarshalJSON decodes field by field. A field with an unexpected JSON type
// is left unset, and a non-object element yields an empty detection.
func (d *RawDetection) UnmarshalJSON(data []byte) error {
	*d = RawDetection{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	d.Crop = stringField(fields["crop"])
	d.Disease = stringField(fields["disease"])
	d.Box = stringField(fields["Box"])
	d.Confidence = confidenceField(fields["confidence"])
	d.X1 = numberField(fields["x1"])
	d.Y1 = numberField(fields["y1"])
	d.X2 = numberField(fields["x2"])
	d.Y2 = numberField(fields["y2"])
	return nil
}

func stringField(raw json.RawMessage) *string {
	if isAbsent(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func numberField(raw json.RawMessage) *float64 {
	if isAbsent(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func confidenceField(raw json.RawMessage) *Confidence {
	if isAbsent(raw) {
		return nil
	}
	if s := stringField(raw); s != nil {
		return &Confidence{Text: *s}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return nil
	}
	return &Confidence{Text: n.String(), Numeric: true}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
