package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFileStoreWriteRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	key, err := store.Write(context.Background(), "results/abc_enhanced.jpg", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if key != "results/abc_enhanced.jpg" {
		t.Fatalf("unexpected key: %s", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !bytes.Equal(data, []byte{0xff, 0xd8}) {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	if _, err := store.Write(context.Background(), "../outside.txt", []byte("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Read(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal read to be rejected")
	}
}

func TestNewKeysAreUniqueAndSanitized(t *testing.T) {
	a := NewResultKey("enhanced.jpg")
	b := NewResultKey("enhanced.jpg")
	if a == b {
		t.Fatalf("result keys collide: %s", a)
	}
	if !strings.HasPrefix(a, "results/") {
		t.Fatalf("unexpected prefix: %s", a)
	}
	up := NewUploadKey("../..//weird name!.png")
	if strings.Contains(up, "..") || strings.Contains(up, " ") {
		t.Fatalf("upload key not sanitized: %s", up)
	}
	if !strings.HasPrefix(up, "uploads/") {
		t.Fatalf("unexpected prefix: %s", up)
	}
}
