package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"versiculo":{}}`)
	if err := s.Write("data.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("data.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("backups/b.json", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("backups/b.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.mp4", []byte("bye"))
	if err := s.Delete("del.mp4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.mp4"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.mp4"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("backups/a.json", []byte("a"))
	_ = s.Write("backups/b.json", []byte("bb"))
	_ = s.Write("backups/readme.txt", []byte("not json"))

	items, err := s.List("backups", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "backups/a.json" || items[1].Size != 2 {
		t.Errorf("items = %+v", items)
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempRoot(t)
	items, err := s.List("backups", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestWriteStreamLimit(t *testing.T) {
	s := tempRoot(t)
	n, err := s.WriteStream("ok.mp4", strings.NewReader("12345"), 5)
	if err != nil || n != 5 {
		t.Fatalf("WriteStream = %d, %v", n, err)
	}

	_, err = s.WriteStream("big.mp4", bytes.NewReader(make([]byte, 6)), 5)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "big.mp4")); !os.IsNotExist(err) {
		t.Error("oversized stream must not leave a file behind")
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".aviva-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("data.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("data.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("data.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".aviva-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "aviva-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
