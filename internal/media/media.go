// Package media stores uploaded meditation videos and audio on disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/aviva/internal/apperr"
	"github.com/starford/aviva/internal/storage"
)

// DefaultMaxBytes is the default upload size limit (100 MB).
const DefaultMaxBytes = 100 << 20

// URLPrefix is the public path under which uploads are served.
const URLPrefix = "/uploads/"

// DefaultAllowedTypes lists the accepted container MIME types.
var DefaultAllowedTypes = []string{
	"video/mp4",
	"video/webm",
	"video/ogg",
	"audio/mpeg",
	"audio/ogg",
}

var (
	// ErrUnsupportedType is returned for a MIME type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type; use MP4, WebM or OGG video, or MP3/OGG audio")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")

	extRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

	mimeToExt = map[string]string{
		"video/mp4":  ".mp4",
		"video/webm": ".webm",
		"video/ogg":  ".ogv",
		"audio/mpeg": ".mp3",
		"audio/ogg":  ".ogg",
	}
)

// Library validates and stores upload files.
type Library struct {
	files    storage.Provider
	maxBytes int64
	allowed  map[string]struct{}
	now      func() time.Time
}

// NewLibrary creates a Library writing into files. A maxBytes <= 0 uses
// DefaultMaxBytes; an empty allowed list uses DefaultAllowedTypes.
func NewLibrary(files storage.Provider, maxBytes int64, allowed []string) *Library {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	set := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		set[strings.ToLower(t)] = struct{}{}
	}
	return &Library{files: files, maxBytes: maxBytes, allowed: set, now: time.Now}
}

// MaxBytes returns the configured size limit.
func (l *Library) MaxBytes() int64 {
	return l.maxBytes
}

// Allowed reports whether contentType is in the allow-list. Parameters such
// as codecs are ignored.
func (l *Library) Allowed(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := l.allowed[strings.ToLower(mt)]
	return ok
}

// Validate checks the declared type and size of an upload before any disk I/O.
func (l *Library) Validate(contentType string, size int64) error {
	if !l.Allowed(contentType) {
		return apperr.Invalid(ErrUnsupportedType)
	}
	if size > l.maxBytes {
		return apperr.Invalid(ErrTooLarge)
	}
	return nil
}

// Save validates and writes r under a generated name and returns the public
// URL of the stored file.
func (l *Library) Save(r io.Reader, originalName, contentType string, size int64) (string, error) {
	if err := l.Validate(contentType, size); err != nil {
		return "", err
	}
	name := GenerateName(originalName, contentType, l.now())
	if _, err := l.files.WriteStream(name, r, l.maxBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", apperr.Invalid(ErrTooLarge)
		}
		return "", fmt.Errorf("media: store upload: %w", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes the file behind a public upload URL.
func (l *Library) Remove(url string) error {
	name, err := fileName(url)
	if err != nil {
		return err
	}
	return l.files.Delete(name)
}

// GenerateName builds "video-<unix millis>-<random><ext>". The extension
// comes from the original name, or from the MIME type when missing or unsafe.
func GenerateName(originalName, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !extRe.MatchString(ext) {
		mt, _, _ := mime.ParseMediaType(contentType)
		ext = mimeToExt[strings.ToLower(mt)]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("video-%d-%s%s", now.UnixMilli(), suffix, ext)
}

// fileName maps a public URL back to a plain file name.
func fileName(url string) (string, error) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", fmt.Errorf("media: not an upload url: %s", url)
	}
	name := strings.TrimPrefix(url, URLPrefix)
	if name == "" || name != path.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("media: invalid upload name: %s", name)
	}
	return name, nil
}
