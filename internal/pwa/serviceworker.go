package pwa

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
)

//go:embed templates/sw.js.tmpl
var tplFS embed.FS

var swTpl = template.Must(template.New("sw.js.tmpl").Funcs(template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}).ParseFS(tplFS, "templates/sw.js.tmpl"))

// WorkerScript describes the generated service worker. It mirrors the policy
// of the Go offline cache layer.
type WorkerScript struct {
	Version        string
	CacheName      string
	Manifest       []string
	BypassPrefixes []string
	Title          string
	DefaultBody    string
	Icon           string
}

// Render produces the script source.
func (s WorkerScript) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := swTpl.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("pwa: render service worker: %w", err)
	}
	return buf.Bytes(), nil
}

// ServiceWorkerHandler serves GET /sw.js. The script is rendered once.
func ServiceWorkerHandler(s WorkerScript) (http.HandlerFunc, error) {
	body, err := s.Render()
	if err != nil {
		return nil, err
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Service-Worker-Allowed", "/")
		_, _ = w.Write(body)
	}, nil
}
