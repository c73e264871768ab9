package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/aviva/internal/checksum"
	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/storage"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *contentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetDocument handles GET /api/data.
//
//	@Summary		Get the whole content document
//	@Tags			content
//	@Produce		json
//	@Success		200	{object}	Document
//	@Header			200	{string}	ETag	"Document revision"
//	@Router			/data [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, rev, err := h.svc.Document(r.Context())
	if err != nil {
		writeError(w, "load document", err, "not found")
		return
	}
	w.Header().Set("ETag", checksum.ETag(rev))
	writeJSON(w, http.StatusOK, doc)
}

// GetField handles GET /api/{field}.
//
//	@Summary		Get a single content field
//	@Tags			content
//	@Produce		json
//	@Param			field	path	string	true	"Field slug"	Enums(palavra-semana, eventos-especiais, meditacao, agenda, contatos, inscricoes)
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Router			/{field} [get]
func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "field")
	v, rev, err := h.svc.Field(r.Context(), slug)
	if err != nil {
		writeError(w, "load field", err, "not found", slog.String("field", slug))
		return
	}
	w.Header().Set("ETag", checksum.ETag(rev))
	writeJSON(w, http.StatusOK, v)
}

// ReplaceField handles POST /api/{field}.
//
//	@Summary		Replace a content field wholesale
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			field		path	string	true	"Field slug"	Enums(versiculo, palavra-semana, agenda, contatos, links, eventos-especiais, meditacao)
//	@Param			If-Match	header	string	false	"Document revision for optimistic concurrency"
//	@Success		200	{object}	MessageResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Router			/{field} [post]
func (h *Handler) ReplaceField(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	slug := chi.URLParam(r, "field")
	if !contentservice.Writable(slug) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	msg, rev, err := h.svc.ReplaceField(r.Context(), slug, body, ifMatch(r))
	if err != nil {
		writeError(w, "replace field", err, "not found", slog.String("field", slug))
		return
	}
	w.Header().Set("ETag", checksum.ETag(rev))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msg})
}

// ListRegistrations handles GET /api/inscricoes.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.Registrations(r.Context())
	if err != nil {
		writeError(w, "list registrations", err, "not found")
		return
	}
	if regs == nil {
		regs = []models.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// CreateRegistration handles POST /api/inscricoes.
//
//	@Summary		Register for the active campaign
//	@Tags			campaign
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegistrationRequest	true	"Registration"
//	@Success		200		{object}	RegistrationResponse
//	@Failure		400		{object}	errResponse
//	@Router			/inscricoes [post]
func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	reg, err := h.svc.AddRegistration(r.Context(), req)
	if err != nil {
		writeError(w, "add registration", err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, RegistrationResponse{
		Success:      true,
		Message:      "Inscrição realizada com sucesso!",
		Registration: reg,
	})
}

// DeleteVideo handles DELETE /api/video/{id}.
//
//	@Summary		Delete a meditation video and its uploaded file
//	@Tags			meditation
//	@Param			id	path		string	true	"Video id"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	errResponse
//	@Router			/video/{id} [delete]
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteVideo(r.Context(), id); err != nil {
		writeError(w, "delete video", err, "Vídeo não encontrado", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Vídeo deletado com sucesso"})
}

// RecordView handles POST /api/video/{id}/view.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	views, err := h.svc.RecordView(r.Context(), id)
	if err != nil {
		writeError(w, "record view", err, "Vídeo não encontrado", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{Success: true, Views: views})
}

// CreateBackup handles POST /api/backup.
//
//	@Summary		Snapshot the content document
//	@Tags			backup
//	@Produce		json
//	@Success		200	{object}	BackupResponse
//	@Router			/backup [post]
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Backup(r.Context())
	if err != nil {
		writeError(w, "backup", err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, BackupResponse{
		Success: true,
		Message: "Backup criado com sucesso",
		File:    info.Path,
	})
}

// ListBackups handles GET /api/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Backups(r.Context())
	if err != nil {
		writeError(w, "list backups", err, "not found")
		return
	}
	if items == nil {
		items = []storage.FileInfo{}
	}
	writeJSON(w, http.StatusOK, items)
}
