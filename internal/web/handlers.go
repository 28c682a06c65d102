package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/ops"
	"github.com/hpungsan/harp/internal/store"
)

// Handlers contains HTTP route handlers for the browser. Every section is
// addressed by its concrete name, so no editor context is involved.
type Handlers struct {
	backend  store.Backend
	renderer *Renderer
}

// HandleSections handles GET /sections: the section index.
func (h *Handlers) HandleSections(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	bookkeeping := parseBoolParam(r, "bookkeeping")

	result, err := ops.Sections(h.backend, ops.SectionsInput{
		Prefix:             prefix,
		IncludeBookkeeping: bookkeeping,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	nav := "sections"
	if bookkeeping {
		nav = "bookkeeping"
	}
	h.renderer.renderPage(w, "sections", SectionsPageData{
		PageData: PageData{
			Title:   "Sections",
			Version: h.renderer.version,
			Nav:     nav,
		},
		Items:       result.Items,
		Prefix:      prefix,
		Bookkeeping: bookkeeping,
	})
}

// HandleSection handles GET /section?name=: one section's registers.
func (h *Handlers) HandleSection(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("section name is required"))
		return
	}

	result, err := ops.List(h.backend, nil, ops.ListInput{
		Section: name,
		Exact:   true,
		Limit:   parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "section", SectionPageData{
		PageData: PageData{
			Title:   name,
			Version: h.renderer.version,
			Nav:     "sections",
		},
		Section:      name,
		Items:        result.Items,
		Pagination:   result.Pagination,
		RenderedHTML: h.renderer.renderMarkdown(sectionMarkdown(result.Items)),
	})
}

// HandleDelete handles POST /section/delete: remove one register.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	section := r.FormValue("section")
	register := r.FormValue("register")

	result, err := ops.Delete(h.backend, nil, ops.DeleteInput{
		Address: ops.Address{Section: section, Register: register, Exact: true},
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/section?name="+url.QueryEscape(section), http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
