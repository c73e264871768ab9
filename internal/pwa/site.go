package pwa

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Site serves the static front-end and uploaded media.
type Site struct {
	publicDir string
	uploadDir string
	files     http.Handler
}

// NewSite serves files from publicDir and uploads from uploadDir.
func NewSite(publicDir, uploadDir string) *Site {
	return &Site{
		publicDir: publicDir,
		uploadDir: uploadDir,
		files:     http.FileServer(http.Dir(publicDir)),
	}
}

// Mount registers the page routes, /uploads/* and the catch-all on r.
// More specific routes registered elsewhere on r still win over the catch-all.
func (s *Site) Mount(r chi.Router) {
	r.Get("/admin", s.page("admin.html"))
	r.Get("/meditacao", s.page("meditacao.html"))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", s.uploads()))
	r.Get("/*", s.static)
}

func (s *Site) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.publicDir, name))
	}
}

// static serves an existing public file, or index.html for any other path.
func (s *Site) static(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name != "/" && !strings.HasSuffix(name, "/index.html") {
		if info, err := os.Stat(filepath.Join(s.publicDir, filepath.FromSlash(name))); err == nil && !info.IsDir() {
			s.files.ServeHTTP(w, r)
			return
		}
	}
	s.page("index.html")(w, r)
}

// uploads serves stored media without directory listings.
func (s *Site) uploads() http.Handler {
	fs := http.FileServer(http.Dir(s.uploadDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
