// Package web embeds the console dashboard.
package web

import "embed"

// Content holds the dashboard page, script and stylesheet.
//
//go:embed index.html app.js styles.css
var Content embed.FS
