// Package storage defines the data directory file-system abstraction.
package storage

import (
	"io"
	"time"
)

// FileInfo describes a stored file.
type FileInfo struct {
	Path      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for file operations under a root directory.
type Provider interface {
	// List returns every file under dir whose name ends with suffix.
	List(dir, suffix string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// WriteStream atomically writes at most limit bytes from r to path and
	// returns the number of bytes written.
	WriteStream(path string, r io.Reader, limit int64) (int64, error)
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Abs returns the absolute location of path (relative to root).
	Abs(path string) (string, error)
}
