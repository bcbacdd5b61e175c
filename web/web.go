// Package web embeds the HTML pages served by the HTTP server.
package web

import "embed"

//go:embed templates/*.html
var TemplateFiles embed.FS
