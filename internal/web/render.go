package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "sections", "bookkeeping"
}

// SectionsPageData is the template data for the section index.
type SectionsPageData struct {
	PageData
	Items       []ops.SectionSummary
	Prefix      string
	Bookkeeping bool
}

// SectionPageData is the template data for one section.
type SectionPageData struct {
	PageData
	Section      string
	Items        []ops.ListItem
	Pagination   ops.Pagination
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	markdown  goldmark.Markdown
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"value": formatEntry,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"sections": "sections.html",
		"section":  "section.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		glog.Errorf("[harp]template %q not found\n", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		glog.Errorf("[harp]template execution error: %v\n", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	hErr, ok := errors.As(err)
	if !ok {
		hErr = errors.NewInternal(err)
	}
	status := hErr.Status
	message := hErr.Message

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(hErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML. Raw HTML in md is omitted.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// sectionMarkdown lays a section out as a markdown table, one row per register.
func sectionMarkdown(items []ops.ListItem) string {
	if len(items) == 0 {
		return "_No registers._\n"
	}
	var b strings.Builder
	b.WriteString("| register | value |\n|---|---|\n")
	for _, it := range items {
		fmt.Fprintf(&b, "| %s | %s |\n", cell(it.Register), cell(formatEntry(it.Entry)))
	}
	return b.String()
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ⏎ ")
}

// formatEntry renders an entry on one line: list values joined with " · ",
// records as path:line:column followed by extra.
func formatEntry(e ops.EntryData) string {
	if e.Record == nil {
		return strings.Join(e.Values, " · ")
	}
	var parts []string
	if e.Record.Path != nil {
		loc := *e.Record.Path
		if e.Record.Line != nil {
			loc += fmt.Sprintf(":%d", *e.Record.Line+1)
			if e.Record.Column != nil {
				loc += fmt.Sprintf(":%d", *e.Record.Column+1)
			}
		}
		parts = append(parts, loc)
	}
	if e.Record.Extra != nil {
		parts = append(parts, *e.Record.Extra)
	}
	return strings.Join(parts, "  ")
}
