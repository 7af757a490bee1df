package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func TestSaveOpenRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	ctx := context.Background()

	n, err := s.Save(ctx, "doc-1/book.txt", strings.NewReader("محتوى"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != int64(len("محتوى")) {
		t.Fatalf("expected %d bytes written, got %d", len("محتوى"), n)
	}

	r, err := s.Open(ctx, "doc-1/book.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	raw, _ := io.ReadAll(r)
	r.Close()
	if string(raw) != "محتوى" {
		t.Fatalf("unexpected content %q", raw)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "doc-1"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}

	if err := s.Remove(ctx, "doc-1/book.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "doc-1/book.txt"); err != nil {
		t.Fatalf("second remove must be a no-op: %v", err)
	}
	if _, err := s.Open(ctx, "doc-1/book.txt"); err == nil {
		t.Fatalf("expected open error after remove")
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	for _, key := range []string{"", "../x", "/etc/passwd", ".."} {
		if _, err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
