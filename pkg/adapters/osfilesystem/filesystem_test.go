package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadFile(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	path := filepath.Join(dir, "sub", "nested", "test.txt")
	content := []byte("hello world")

	if err := fs.WriteFile(path, content); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content mismatch: got %s, want %s", data, content)
	}
}

func TestReadFileNotFound(t *testing.T) {
	fs := New()
	if _, err := fs.ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error reading missing file")
	}
}

func TestMkdirAll(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	path := filepath.Join(dir, "a", "b", "c")
	if err := fs.MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	path := filepath.Join(dir, "exists.txt")
	if err := fs.WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ok, err := fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("expected file to exist")
	}

	ok, err = fs.Exists(filepath.Join(dir, "missing.txt"))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("expected file to not exist")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	path := filepath.Join(dir, "remove.txt")
	if err := fs.WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(path); ok {
		t.Error("file should be removed")
	}
}
