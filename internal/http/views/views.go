// Package views holds the embedded HTML templates and static assets.
package views

import (
	"embed"
	"html/template"
	"io/fs"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var funcs = template.FuncMap{
	"day": func(t time.Time) string { return t.Format("Mon 2 Jan") },
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"deref": func(v any) any {
		switch p := v.(type) {
		case *float64:
			if p != nil {
				return *p
			}
		case *int:
			if p != nil {
				return *p
			}
		case *string:
			if p != nil {
				return *p
			}
		}
		return ""
	},
}

// Templates parses every page template. Each file defines one named page
// plus the shared "head" and "foot" blocks.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Static serves /static/*.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
