package api

import (
	"github.com/starford/aviva/internal/contentservice"
	"github.com/starford/aviva/internal/models"
)

// Document is the whole content document (aliased from the domain layer).
type Document = models.Document

// RegistrationRequest is the request body for a campaign sign-up.
type RegistrationRequest = contentservice.RegistrationInput

// MessageResponse acknowledges a successful mutation.
type MessageResponse struct {
	Success bool   `json:"success" example:"true" validate:"required"`
	Message string `json:"message" example:"Versículo atualizado com sucesso" validate:"required"`
}

// RegistrationResponse is returned after a sign-up.
type RegistrationResponse struct {
	Success      bool                `json:"success" validate:"required"`
	Message      string              `json:"message" example:"Inscrição realizada com sucesso!" validate:"required"`
	Registration models.Registration `json:"inscricao" validate:"required"`
}

// UploadResponse is returned after a successful video upload.
type UploadResponse struct {
	Success bool                   `json:"success" validate:"required"`
	Video   models.MeditationVideo `json:"video" validate:"required"`
	Message string                 `json:"message" example:"Vídeo enviado com sucesso!" validate:"required"`
}

// ViewResponse carries a video's view count after an increment.
type ViewResponse struct {
	Success bool `json:"success" validate:"required"`
	Views   int  `json:"views" example:"12" validate:"required"`
}

// BackupResponse is returned after a backup is written.
type BackupResponse struct {
	Success bool   `json:"success" validate:"required"`
	Message string `json:"message" example:"Backup criado com sucesso" validate:"required"`
	File    string `json:"file" example:"backups/backup-1767225600000.json" validate:"required"`
}
