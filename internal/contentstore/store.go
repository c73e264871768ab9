// Package contentstore persists the portal Document as one JSON file.
//
// Every mutation is a whole-document read-modify-write. Cycles issued through
// Update are serialized inside the process; callers may pass the revision
// they last read to reject writes based on a stale copy.
package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/checksum"
	"github.com/starford/aviva/internal/models"
	"github.com/starford/aviva/internal/storage"
)

// Defaults for the on-disk layout.
const (
	DefaultDocumentName = "data.json"
	DefaultBackupsDir   = "backups"
)

// Store reads and writes the content Document.
type Store struct {
	files      storage.Provider
	name       string
	backupsDir string
	now        func() time.Time
	logger     *slog.Logger

	mu        sync.Mutex // serializes Update cycles
	lastMu    sync.RWMutex
	lastSaved string
}

// Option configures a Store.
type Option func(*Store)

// WithDocumentName sets the document file name (relative to the provider root).
func WithDocumentName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithBackupsDir sets the backups directory (relative to the provider root).
func WithBackupsDir(dir string) Option {
	return func(s *Store) { s.backupsDir = dir }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store on top of files.
func New(files storage.Provider, opts ...Option) *Store {
	s := &Store{
		files:      files,
		name:       DefaultDocumentName,
		backupsDir: DefaultBackupsDir,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentName returns the document path relative to the provider root.
func (s *Store) DocumentName() string {
	return s.name
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Seed writes the default document if none exists yet.
func (s *Store) Seed(ctx context.Context) error {
	_, _, err := s.Current(ctx)
	return err
}

// Load returns the persisted document, seeding it on first use.
func (s *Store) Load(ctx context.Context) (*models.Document, error) {
	doc, _, err := s.Current(ctx)
	return doc, err
}

// Current returns the persisted document together with its revision.
func (s *Store) Current(ctx context.Context) (*models.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := s.files.Read(s.name)
	if errors.Is(err, os.ErrNotExist) {
		doc := models.DefaultDocument(s.now())
		rev, err := s.Save(ctx, &doc)
		if err != nil {
			return nil, "", fmt.Errorf("contentstore: seed: %w", err)
		}
		s.logger.Info("content document seeded", slog.String("document", s.name))
		return &doc, rev, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("contentstore: load: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("contentstore: load: %w", err)
	}
	s.backfill(doc)
	return doc, checksum.Sum(data), nil
}

// Check reports whether the document exists and decodes. It never writes,
// so readiness probes cannot seed or repair the file.
func (s *Store) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.files.Read(s.name)
	if err != nil {
		return fmt.Errorf("contentstore: check: %w", err)
	}
	if _, err := Decode(data); err != nil {
		return fmt.Errorf("contentstore: check: %w", err)
	}
	return nil
}

// Revision returns the checksum of the persisted document.
func (s *Store) Revision(ctx context.Context) (string, error) {
	_, rev, err := s.Current(ctx)
	return rev, err
}

// Save overwrites the whole document and returns the new revision.
func (s *Store) Save(ctx context.Context, doc *models.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := Encode(doc)
	if err != nil {
		return "", fmt.Errorf("contentstore: encode: %w", err)
	}
	rev := checksum.Sum(data)
	// Record before writing so a watcher never mistakes our own write for an
	// external edit.
	s.setLastSaved(rev)
	if err := s.files.Write(s.name, data); err != nil {
		return "", fmt.Errorf("contentstore: save: %w", err)
	}
	s.logger.Debug("content document saved", slog.String("revision", rev))
	return rev, nil
}

// Update loads the document, applies fn and saves the result. When ifMatch is
// non-empty and differs from the current revision, apperr.ErrConflict is
// returned and nothing is written. If fn fails, nothing is written.
func (s *Store) Update(ctx context.Context, ifMatch string, fn func(*models.Document) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, rev, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if ifMatch != "" && ifMatch != rev {
		return "", apperr.ErrConflict
	}
	if err := fn(doc); err != nil {
		return "", err
	}
	return s.Save(ctx, doc)
}

// Backup writes a timestamped copy of the current document.
func (s *Store) Backup(ctx context.Context) (storage.FileInfo, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return storage.FileInfo{}, err
	}
	data, err := Encode(doc)
	if err != nil {
		return storage.FileInfo{}, fmt.Errorf("contentstore: encode: %w", err)
	}
	name := path.Join(s.backupsDir, "backup-"+strconv.FormatInt(s.now().UnixMilli(), 10)+".json")
	if err := s.files.Write(name, data); err != nil {
		return storage.FileInfo{}, fmt.Errorf("contentstore: backup: %w", err)
	}
	return storage.FileInfo{Path: name, Size: int64(len(data)), UpdatedAt: s.now()}, nil
}

// ListBackups returns the stored backup copies.
func (s *Store) ListBackups(_ context.Context) ([]storage.FileInfo, error) {
	items, err := s.files.List(s.backupsDir, ".json")
	if err != nil {
		return nil, fmt.Errorf("contentstore: list backups: %w", err)
	}
	return items, nil
}

// Reload checks a document file changed outside this process. It reports
// false when the file still holds the last seen revision. A file that does
// not parse is returned as an error and not recorded as seen.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := s.files.Read(s.name)
	if err != nil {
		return false, fmt.Errorf("contentstore: reload: %w", err)
	}
	rev := checksum.Sum(data)
	if rev == s.LastSaved() {
		return false, nil
	}
	if _, err := Decode(data); err != nil {
		return false, fmt.Errorf("contentstore: reload: %w", err)
	}
	s.setLastSaved(rev)
	return true, nil
}

// LastSaved returns the revision most recently written or seen by this process.
func (s *Store) LastSaved() string {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastSaved
}

func (s *Store) setLastSaved(rev string) {
	s.lastMu.Lock()
	s.lastSaved = rev
	s.lastMu.Unlock()
}

// backfill assigns missing ids and replaces nil collections.
func (s *Store) backfill(doc *models.Document) {
	base := s.now().UnixMilli()
	for i := range doc.Calendar {
		if doc.Calendar[i].ID == "" {
			doc.Calendar[i].ID = strconv.FormatInt(base+int64(i), 10)
		}
	}
	for i := range doc.Contacts {
		if doc.Contacts[i].ID == 0 {
			doc.Contacts[i].ID = i + 1
		}
	}
	Normalize(doc)
}

// Normalize replaces nil collections with empty ones so they encode as [] / {}.
func Normalize(doc *models.Document) {
	if doc.Calendar == nil {
		doc.Calendar = []models.CalendarEntry{}
	}
	if doc.Contacts == nil {
		doc.Contacts = []models.Contact{}
	}
	if doc.Meditations == nil {
		doc.Meditations = []models.MeditationVideo{}
	}
	if doc.Links == nil {
		doc.Links = map[string]string{}
	}
	if doc.Campaign.Registrations == nil {
		doc.Campaign.Registrations = []models.Registration{}
	}
}

// Encode renders the document the way it is stored on disk.
func Encode(doc *models.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a stored document.
func Decode(data []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
