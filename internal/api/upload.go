package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/aviva/internal/contentservice"
)

// multipartMemory is the part of a multipart form kept in memory; larger
// files spill to temporary files.
const multipartMemory = 32 << 20

// Uploads stores media files for the upload handler.
type Uploads interface {
	MaxBytes() int64
	Validate(contentType string, size int64) error
	Save(r io.Reader, originalName, contentType string, size int64) (string, error)
	Remove(url string) error
}

// UploadHandler accepts meditation video uploads.
type UploadHandler struct {
	svc     *contentservice.Service
	uploads Uploads
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(svc *contentservice.Service, uploads Uploads) *UploadHandler {
	return &UploadHandler{svc: svc, uploads: uploads}
}

// Upload handles POST /api/upload-video (multipart/form-data, field "video").
//
//	@Summary		Upload a meditation video
//	@Tags			meditation
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			video		formData	file	true	"Video or audio file"
//	@Param			titulo		formData	string	false	"Title"
//	@Param			duracao		formData	string	false	"Duration"
//	@Param			descricao	formData	string	false	"Description"
//	@Param			categoria	formData	string	false	"Category"
//	@Success		200	{object}	UploadResponse
//	@Failure		400	{object}	errResponse
//	@Router			/upload-video [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Room for the text fields and multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Nenhum arquivo enviado"))
		return
	}
	defer file.Close()

	ctype := header.Header.Get("Content-Type")
	if err := h.uploads.Validate(ctype, header.Size); err != nil {
		writeError(w, "validate upload", err, "not found")
		return
	}
	url, err := h.uploads.Save(file, header.Filename, ctype, header.Size)
	if err != nil {
		writeError(w, "store upload", err, "not found", slog.String("filename", header.Filename))
		return
	}

	video, err := h.svc.AddUploadedVideo(r.Context(), contentservice.VideoInput{
		Title:       formValue(r, "titulo", "title"),
		Duration:    formValue(r, "duracao", "duration"),
		Description: formValue(r, "descricao", "description"),
		Category:    formValue(r, "categoria", "category"),
	}, url)
	if err != nil {
		if rmErr := h.uploads.Remove(url); rmErr != nil {
			slog.Warn("orphaned upload not removed", slog.String("url", url), slog.String("error", rmErr.Error()))
		}
		writeError(w, "add video", err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Video:   video,
		Message: "Vídeo enviado com sucesso!",
	})
}

// formValue returns the first non-empty value among the given field names.
func formValue(r *http.Request, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(r.FormValue(n)); v != "" {
			return v
		}
	}
	return ""
}
