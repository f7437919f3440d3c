// Package web holds embedded static assets and templates for the Tomhasit site and dashboard.
package web

import "embed"

// TemplateFS contains all HTML templates.
//
//go:embed templates
var TemplateFS embed.FS

// StaticFS contains compiled stylesheets, scripts and images.
//
//go:embed static
var StaticFS embed.FS
