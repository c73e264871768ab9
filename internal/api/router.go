package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/aviva/internal/contentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *contentservice.Service, uploads Uploads, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	uh := NewUploadHandler(svc, uploads)

	r := chi.NewRouter()
	r.Use(NoStore)

	r.Get("/data", h.GetDocument)

	// Registrations.
	r.Get("/inscricoes", h.ListRegistrations)
	r.Post("/inscricoes", h.CreateRegistration)

	// Meditation videos.
	r.Post("/upload-video", uh.Upload)
	r.Delete("/video/{id}", h.DeleteVideo)
	r.Post("/video/{id}/view", h.RecordView)

	// Backups.
	r.Post("/backup", h.CreateBackup)
	r.Get("/backups", h.ListBackups)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	// Single fields. Static routes above take precedence.
	r.Get("/{field}", h.GetField)
	r.Post("/{field}", h.ReplaceField)

	return r
}
