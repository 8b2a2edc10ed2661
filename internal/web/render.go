// Package web provides the server-rendered browser client: paginated task
// and log tables, search, and task create/edit/delete forms.
package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Renderer manages HTML template rendering with caching and custom functions.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	mu        sync.RWMutex
}

// NewRenderer creates a Renderer by parsing all templates in the given
// directory. base.html is combined with each page template in
// subdirectories; page names are relative paths like "tasks/list.html".
func NewRenderer(templatesDir string) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   createFuncMap(),
	}

	if err := r.parseTemplates(templatesDir); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return r, nil
}

// Render executes the named page template within the base layout.
func (r *Renderer) Render(w http.ResponseWriter, templateName string, data interface{}) error {
	r.mu.RLock()
	tmpl, ok := r.templates[templateName]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", templateName, err)
	}

	return nil
}

// RenderError renders a minimal error page with the given status code.
func (r *Renderer) RenderError(w http.ResponseWriter, code int, message string) {
	http.Error(w, fmt.Sprintf("Error %d: %s", code, message), code)
}

func (r *Renderer) parseTemplates(templatesDir string) error {
	basePath := filepath.Join(templatesDir, "base.html")
	if _, err := os.Stat(basePath); err != nil {
		return fmt.Errorf("base template: %w", err)
	}

	err := filepath.Walk(templatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel, err := filepath.Rel(templatesDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "base.html" {
			return nil
		}

		tmpl, err := template.New("base.html").Funcs(r.funcMap).ParseFiles(basePath, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", rel, err)
		}

		r.mu.Lock()
		r.templates[rel] = tmpl
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	if len(r.templates) == 0 {
		return fmt.Errorf("no page templates found in %s", templatesDir)
	}
	return nil
}

func createFuncMap() template.FuncMap {
	return template.FuncMap{
		"fmtTime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04:05 MST")
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"jsonCompact": func(v any) string {
			if v == nil {
				return "null"
			}
			data, err := json.Marshal(v)
			if err != nil {
				return "?"
			}
			return string(data)
		},
	}
}
