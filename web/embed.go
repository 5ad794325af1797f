package web

import "embed"

// TemplatesFS embeds the HTML templates of the expense screen.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the form script.
//
//go:embed static/*
var StaticFS embed.FS
