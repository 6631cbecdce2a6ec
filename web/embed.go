// Package web embeds the page templates and static assets served by the
// bilancio server.
package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the diagram client script.
//
//go:embed static/*
var StaticFS embed.FS
