package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "documents/FAC-0001/rev_00.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, err := s.Open(ctx, "documents/FAC-0001/rev_00.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4" {
		t.Errorf("unexpected content %q", data)
	}

	if err := s.Remove(ctx, "documents/FAC-0001/rev_00.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Open(ctx, "documents/FAC-0001/rev_00.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStoreStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := NewLocalStore(root)

	full, err := s.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if !strings.HasPrefix(full, root) {
		t.Errorf("escaped root: %s", full)
	}
}
