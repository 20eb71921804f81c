package memory

import (
	"bytes"
	"cagecore/internal/blob/core"
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
	if _, err := store.Put(ctx, "/uploads/k", bytes.NewReader([]byte("v")), core.PutOptions{Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "uploads/k", bytes.NewReader([]byte("v2")), core.PutOptions{}); err == nil {
		t.Fatal("expected duplicate put error")
	}
	info, err := store.Head(ctx, "./uploads/k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	info.Metadata["a"] = "mutated"
	again, _ := store.Head(ctx, "uploads/k")
	if again.Metadata["a"] != "1" {
		t.Fatal("metadata must be copied on read")
	}
	if list, err := store.List(ctx, "uploads/"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, "other/"); err != nil || len(list) != 0 {
		t.Fatalf("list other: %v %d", err, len(list))
	}
	if ok, err := store.Delete(ctx, "uploads/k"); err != nil || !ok {
		t.Fatalf("expected delete true, got %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatal("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := store.Put(context.Background(), "../bad", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatal("expected unsafe key error")
	}
}
