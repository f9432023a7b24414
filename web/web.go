// Package web embeds the HTML templates
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templates embed.FS

// Templates parses every embedded template
func Templates() (*template.Template, error) {
	return template.ParseFS(templates, "templates/*.html")
}
