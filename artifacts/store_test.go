// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package artifacts

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestStorePutGet(t *testing.T) {
	dir, err := os.MkdirTemp("", "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	content := []byte("decoded payload content")
	sum := fmt.Sprintf("%x", sha256.Sum256(content))

	rec, stored, err := s.Put(content, "b64_decoded", "test artifact")
	if err != nil {
		t.Fatal(err)
	}
	if !stored {
		t.Fatal("first Put should store")
	}
	if rec.SHA256 != sum {
		t.Errorf("wrong hash: %s", rec.SHA256)
	}
	if rec.Name != fmt.Sprintf("%s_b64_decoded", sum[:10]) {
		t.Errorf("wrong name: %s", rec.Name)
	}
	if rec.Size != int64(len(content)) {
		t.Errorf("wrong size: %d", rec.Size)
	}
	if rec.Path != filepath.Join(dir, sum[:2], sum) {
		t.Errorf("wrong path: %s", rec.Path)
	}

	onDisk, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, content) {
		t.Error("stored content differs")
	}

	got, err := s.Get(sum)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != rec.Name || got.Description != "test artifact" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestStoreDeduplicatesByContent(t *testing.T) {
	dir, err := os.MkdirTemp("", "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	content := []byte("identical bytes found twice")
	first, stored, err := s.Put(content, "embed_pe", "from pipeline one")
	if err != nil {
		t.Fatal(err)
	}
	if !stored {
		t.Fatal("first Put should store")
	}

	// same content from another pipeline: first writer wins
	second, stored, err := s.Put(content, "xorpe_decoded", "from pipeline two")
	if err != nil {
		t.Fatal(err)
	}
	if stored {
		t.Fatal("second Put of identical content should be a no-op")
	}
	if second.Name != first.Name || second.Description != first.Description {
		t.Errorf("second Put should return the original record, got %+v", second)
	}

	entries, err := os.ReadDir(filepath.Join(dir, first.SHA256[:2]))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one stored file, got %d", len(entries))
	}
}

func TestStoreGetMissing(t *testing.T) {
	dir, err := os.MkdirTemp("", "artifacts")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err = s.Get("0000000000000000000000000000000000000000000000000000000000000000")
	if err == nil {
		t.Fatal("expected error for missing record")
	}
}
