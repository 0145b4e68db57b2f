// Package web holds the server-rendered pages of the submission app.
//
// Every page is parsed together with layout.html into its own template set and rendered through the
// "layout" template, which pulls in the page's "content" block.
//
// Pages
//
//	auth       code entry, the only page shown before the gate is passed
//	dashboard  greeting and the latest settled pick
//	add        search form, results and the submit confirmation
//	next       this week's queue, with remove buttons on the visitor's own rows
//	arkiv      archive of past picks with ISO week numbers
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"auth", "dashboard", "add", "next", "arkiv"}

// Page is the data passed to every template.
type Page struct {
	Title  string
	Path   string // request path, used to highlight the nav entry
	Member string // display name; empty hides the nav
	Data   any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
}

// NewRenderer parses all pages. It fails only if the embedded templates are broken.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name to w. The page is buffered first so a template error never leaves half a document.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Pages lists the page names the renderer knows.
func (r *Renderer) Pages() []string {
	return append([]string(nil), pageNames...)
}
