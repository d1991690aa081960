package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMemoryStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)

	data := []byte("encoded artifact")
	handle, err := s.Store(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if handle != ComputeHandle(data) {
		t.Fatal("handle is not the content hash")
	}

	got, err := s.Load(ctx, handle)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("loaded data differs")
	}

	// Storing the same content again dedups.
	again, err := s.Store(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if again != handle {
		t.Fatal("dedup returned a different handle")
	}

	if err := s.Delete(ctx, handle); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, handle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStorageCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(0)

	if _, err := s.Store(ctx, make([]byte, 16)); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected ErrStorageFull, got %v", err)
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("encoded artifact")
	handle, err := s.Store(ctx, data)
	if err != nil {
		t.Fatal(err)
	}

	exists, err := s.Exists(ctx, handle)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("stored artifact should exist")
	}

	got, err := s.Load(ctx, handle)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("loaded data differs")
	}

	if err := s.Delete(ctx, handle); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, handle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFileStorageMissingHandle(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(ctx, Handle("deadbeef")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, Handle("deadbeef")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
