// Package web holds the embedded HTML templates and static assets for the
// browser UI.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// pages are the templates rendered inside the base layout.
var pages = []string{"login", "analyzer", "generator", "history", "detail", "admin"}

var funcMap = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(s, "\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
}

// ParseTemplates parses each page template together with the base layout.
func ParseTemplates() (map[string]*template.Template, error) {
	tmpls := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("base.html").Funcs(funcMap).ParseFS(
			templatesFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		tmpls[page] = t
	}
	return tmpls, nil
}

// StaticHandler serves the embedded static assets under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
