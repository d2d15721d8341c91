// Package web holds the HTML views compiled into the binary.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
