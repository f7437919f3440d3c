package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Title string
	Path  string     // request path, for active navigation links
	User  *auth.User // nil for anonymous pages
	Flash *Flash
	// RefreshFailed is set when the session's token could not be renewed;
	// the dashboard layout shows a sign-in-again banner.
	RefreshFailed bool
}

// newBasePage builds the layout data for r. A pending flash message is
// consumed when flow is non-nil.
func newBasePage(r *http.Request, flow *auth.Flow, title string) BasePage {
	bp := BasePage{Title: title, Path: r.URL.Path}
	if rec := auth.SessionFromContext(r.Context()); rec != nil {
		u := rec.User
		bp.User = &u
		bp.RefreshFailed = rec.RefreshFailed()
	}
	if flow != nil {
		if msg := flow.PopFlash(r.Context()); msg != "" {
			bp.Flash = &Flash{Type: "success", Message: msg}
		}
	}
	return bp
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"truncate": func(n int, s string) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "…"
	},
	"initial": func(s string) string {
		for _, r := range s {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
	"hasPrefix": strings.HasPrefix,
	"active": func(current, href string) bool {
		if href == "/dashboard" {
			return current == href
		}
		return current == href || strings.HasPrefix(current, href+"/")
	},
}

// pageCache maps a render key (e.g. "home.html", "dashboard/gallery.html") to a
// compiled template set containing base.html + partials + that one page file.
// Each page gets its own set so {{define "content"}} blocks don't collide.
var (
	pageCache    map[string]*template.Template
	fragmentTmpl *template.Template
)

func init() {
	partials, err := fs.Glob(web.TemplateFS, "templates/partials/*.html")
	if err != nil {
		panic("glob partials: " + err.Error())
	}

	// Standalone set for global HTMX fragment rendering (partials only).
	fragmentTmpl = template.Must(template.New("").Funcs(funcs).ParseFS(web.TemplateFS, partials...))

	// Count how many page files share each basename to detect collisions.
	baseCount := map[string]int{}
	_ = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}
		baseCount[filepath.Base(p)]++
		return nil
	})

	// Build one template set per page file.
	pageCache = make(map[string]*template.Template)
	err = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}

		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").Funcs(funcs).ParseFS(web.TemplateFS, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		// Primary key: path relative to "templates/pages/" (always unambiguous).
		rel, _ := strings.CutPrefix(p, "templates/pages/")
		pageCache[rel] = t

		// Alias under bare basename when it is unique across all page files.
		base := filepath.Base(p)
		if baseCount[base] == 1 {
			pageCache[base] = t
		}

		return nil
	})
	if err != nil {
		panic("build page cache: " + err.Error())
	}
}

// Flash represents a one-time notification message shown to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// isHTMX returns true when the request was sent by HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends HTMX clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// render executes a full-page template (base layout + named page).
// tmpl is the render key, e.g. "login.html" or "dashboard/gallery.html".
func render(w http.ResponseWriter, tmpl string, data any) {
	renderStatus(w, http.StatusOK, tmpl, data)
}

// renderStatus is render with an explicit status code.
func renderStatus(w http.ResponseWriter, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		http.Error(w, "template not found: "+tmpl, http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// renderFragment executes a named template from the global partials set.
// Use for standalone HTMX partials (modals, confirm dialogs, flash).
func renderFragment(w http.ResponseWriter, tmpl string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fragmentTmpl.ExecuteTemplate(w, tmpl, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// renderPageFragment executes a named template from a specific page's template set.
// Use for HTMX partial renders that need a page-specific block (e.g. "content")
// or a page-local named template (e.g. "gallery_table" in dashboard/gallery.html).
func renderPageFragment(w http.ResponseWriter, page, tmpl string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t, ok := pageCache[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}
	if err := t.ExecuteTemplate(w, tmpl, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// serverError logs err against the request and answers 500.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
