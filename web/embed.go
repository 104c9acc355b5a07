package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds stylesheets inlined into rendered documents.
//
//go:embed static/**/*
var Static embed.FS
