package handlers

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates returns the HTML templates used by ReportHandler.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"jpegURI": func(encoded string) template.URL {
			return template.URL("data:image/jpeg;base64," + encoded)
		},
		"percent": func(ratio float64) string {
			return fmt.Sprintf("%.0f", ratio*100)
		},
	}).ParseFS(templateFS, "templates/*.html"))
}
