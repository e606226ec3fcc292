package clients

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStorageSave(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/files", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content := []byte("receipt body")
	saved, err := storage.Save(context.Background(), "receipt.pdf", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(saved, "_receipt.pdf") {
		t.Errorf("expected random prefix before original name, got %q", saved)
	}

	data, err := os.ReadFile(filepath.Join(dir, saved))
	if err != nil {
		t.Fatalf("saved file not readable: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("saved content mismatch: %q", data)
	}

	// no temp leftovers after the atomic rename
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStorageSave_StripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/files", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := storage.Save(context.Background(), "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(saved, "..") || strings.Contains(saved, "/") {
		t.Errorf("path components survived sanitizing: %q", saved)
	}
	if _, err := os.Stat(filepath.Join(dir, saved)); err != nil {
		t.Errorf("file not stored inside base dir: %v", err)
	}
}

func TestStorageGetURL(t *testing.T) {
	relative := &StorageClient{BaseDir: ".", PublicPrefix: "/files"}
	if got := relative.GetURL("a.xlsx"); got != "/files/a.xlsx" {
		t.Errorf("relative url: got %q", got)
	}

	absolute := &StorageClient{BaseDir: ".", PublicPrefix: "files", BaseURL: "https://api.example.com/"}
	if got := absolute.GetURL("a.xlsx"); got != "https://api.example.com/files/a.xlsx" {
		t.Errorf("absolute url: got %q", got)
	}
}

func TestStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/files", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old := filepath.Join(dir, "old.xlsx")
	fresh := filepath.Join(dir, "fresh.xlsx")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	if err := storage.CleanupOlderThan(time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale file survived cleanup")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
}
