package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Save(ctx, "rescisao.pdf", strings.NewReader("conteudo"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	f, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "conteudo" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(ctx, ref); err == nil {
		t.Fatal("removed reference must not open")
	}
}

func TestLocalStoreRejectsEscapingReferences(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for _, ref := range []string{"../secret", "/etc/passwd", "a/../../b"} {
		if _, err := store.Open(ctx, ref); err == nil {
			t.Fatalf("open accepted escaping reference %q", ref)
		}
		if err := store.Remove(ctx, ref); err == nil {
			t.Fatalf("remove accepted escaping reference %q", ref)
		}
	}
}
