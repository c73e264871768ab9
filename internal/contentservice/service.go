// Package contentservice implements the content operations behind the REST
// API: field reads and replacements, registrations, uploaded videos, view
// counters and backups.
package contentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/contentstore"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/storage"
)

// Change kinds passed to a ChangeFunc.
const (
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ChangeFunc is called after every successful mutation.
type ChangeFunc func(kind, field string)

// FileRemover deletes the backing file of an uploaded video.
type FileRemover interface {
	Remove(url string) error
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service coordinates content mutations on top of the store.
type Service struct {
	store    *contentstore.Store
	files    FileRemover
	onChange ChangeFunc
	logger   *slog.Logger
}

// NewService creates a content service. files and onChange may be nil.
func NewService(store *contentstore.Store, files FileRemover, onChange ChangeFunc) *Service {
	return &Service{store: store, files: files, onChange: onChange, logger: slog.Default()}
}

// Document returns the whole document and its revision.
func (s *Service) Document(ctx context.Context) (*models.Document, string, error) {
	return s.store.Current(ctx)
}

// Field returns a single readable field.
func (s *Service) Field(ctx context.Context, slug string) (any, string, error) {
	if !Readable(slug) {
		return nil, "", apperr.ErrNotFound
	}
	doc, rev, err := s.store.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	return fields[slug].read(doc), rev, nil
}

// ReplaceField replaces a writable field wholesale from its JSON encoding.
// It returns a human-readable confirmation and the new revision.
func (s *Service) ReplaceField(ctx context.Context, slug string, raw []byte, ifMatch string) (string, string, error) {
	if !Writable(slug) {
		return "", "", apperr.ErrNotFound
	}
	f := fields[slug]
	rev, err := s.store.Update(ctx, ifMatch, func(doc *models.Document) error {
		return f.replace(doc, raw, s.store.Now().UTC())
	})
	if err != nil {
		return "", "", err
	}
	s.notify(ChangeUpdated, slug)
	return f.message, rev, nil
}

// PartySize accepts both a JSON number and a numeric string.
type PartySize int

// UnmarshalJSON implements json.Unmarshaler.
func (p *PartySize) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = PartySize(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("quantidade must be a number")
	}
	str = strings.TrimSpace(str)
	if str == "" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("quantidade must be a number")
	}
	*p = PartySize(n)
	return nil
}

// RegistrationInput is the payload of a campaign sign-up.
type RegistrationInput struct {
	Name      string    `json:"nome"`
	Phone     string    `json:"telefone"`
	Email     string    `json:"email"`
	PartySize PartySize `json:"quantidade"`
}

// Validate checks the sign-up fields.
func (in *RegistrationInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if in.PartySize == 0 {
		in.PartySize = 1
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Phone, validation.Required, validation.Length(1, 40)),
		validation.Field(&in.Email, validation.Match(emailRe)),
		validation.Field(&in.PartySize, validation.Min(PartySize(1)), validation.Max(PartySize(50))),
	)
}

// AddRegistration appends a pending registration to the campaign.
func (s *Service) AddRegistration(ctx context.Context, in RegistrationInput) (models.Registration, error) {
	if err := in.Validate(); err != nil {
		return models.Registration{}, apperr.Invalid(err)
	}
	reg := models.Registration{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PartySize:    int(in.PartySize),
		RegisteredAt: s.store.Now().UTC(),
		Status:       models.RegistrationPending,
	}
	_, err := s.store.Update(ctx, "", func(doc *models.Document) error {
		doc.Campaign.Registrations = append(doc.Campaign.Registrations, reg)
		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}
	s.notify(ChangeUpdated, FieldRegistrations)
	return reg, nil
}

// Registrations returns the campaign's registrations in submission order.
func (s *Service) Registrations(ctx context.Context) ([]models.Registration, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Campaign.Registrations, nil
}

// VideoInput carries the text fields sent along with an upload.
type VideoInput struct {
	Title       string
	Duration    string
	Description string
	Category    string
}

// AddUploadedVideo prepends a metadata record for a stored upload.
func (s *Service) AddUploadedVideo(ctx context.Context, in VideoInput, url string) (models.MeditationVideo, error) {
	now := s.store.Now().UTC()
	v := models.MeditationVideo{
		ID:          uuid.NewString(),
		Title:       orDefault(in.Title, "Vídeo sem título"),
		Duration:    orDefault(in.Duration, "0 min"),
		Description: strings.TrimSpace(in.Description),
		Category:    orDefault(in.Category, "Geral"),
		Kind:        models.VideoUpload,
		URL:         url,
		Date:        now.Format(time.DateOnly),
	}
	_, err := s.store.Update(ctx, "", func(doc *models.Document) error {
		doc.Meditations = append([]models.MeditationVideo{v}, doc.Meditations...)
		return nil
	})
	if err != nil {
		return models.MeditationVideo{}, err
	}
	s.notify(ChangeUpdated, FieldMeditations)
	return v, nil
}

// DeleteVideo removes a video record and, for uploads, its backing file.
// A file that cannot be removed is logged; the record is still deleted.
func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	var removed models.MeditationVideo
	_, err := s.store.Update(ctx, "", func(doc *models.Document) error {
		i := doc.FindVideo(id)
		if i < 0 {
			return apperr.ErrNotFound
		}
		removed = doc.Meditations[i]
		doc.Meditations = append(doc.Meditations[:i], doc.Meditations[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	if removed.Kind == models.VideoUpload && removed.URL != "" && s.files != nil {
		if err := s.files.Remove(removed.URL); err != nil {
			s.logger.Warn("upload file not removed",
				slog.String("video_id", id),
				slog.String("url", removed.URL),
				slog.String("error", err.Error()))
		}
	}
	s.notify(ChangeDeleted, FieldMeditations)
	return nil
}

// RecordView increments a video's view counter and returns the new count.
func (s *Service) RecordView(ctx context.Context, id string) (int, error) {
	var views int
	_, err := s.store.Update(ctx, "", func(doc *models.Document) error {
		i := doc.FindVideo(id)
		if i < 0 {
			return apperr.ErrNotFound
		}
		doc.Meditations[i].ViewCount++
		views = doc.Meditations[i].ViewCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.notify(ChangeUpdated, FieldMeditations)
	return views, nil
}

// Backup snapshots the current document.
func (s *Service) Backup(ctx context.Context) (storage.FileInfo, error) {
	return s.store.Backup(ctx)
}

// Backups lists stored snapshots.
func (s *Service) Backups(ctx context.Context) ([]storage.FileInfo, error) {
	return s.store.ListBackups(ctx)
}

func (s *Service) notify(kind, slug string) {
	if s.onChange != nil {
		s.onChange(kind, slug)
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
