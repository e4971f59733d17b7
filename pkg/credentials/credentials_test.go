package credentials

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	tok := New("netlab", "slice", "bearer-abc", time.Hour)
	if err := store.Set(ctx, tok); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "netlab", "slice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Bearer != "bearer-abc" || got.Project != "netlab" || got.Scope != "slice" {
		t.Errorf("token = %+v", got)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "ghost", "slice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	tok := New("netlab", "slice", "stale", time.Hour)
	tok.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Set(ctx, tok); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "netlab", "slice"); !errors.Is(err, ErrExpired) {
		t.Errorf("Get expired = %v", err)
	}
	// The stale file is removed; a second read misses entirely.
	if _, err := store.Get(ctx, "netlab", "slice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry cleanup = %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Set(ctx, New("netlab", "slice", "tok", 0)); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "netlab", "slice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "netlab", "slice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	// Deleting again is fine.
	if err := store.Delete(ctx, "netlab", "slice"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	if tok := New("p", "s", "b", 0); tok.IsExpired() {
		t.Error("token without expiry reported expired")
	}
	tok := New("p", "s", "b", time.Nanosecond)
	time.Sleep(time.Millisecond)
	if !tok.IsExpired() {
		t.Error("expired token reported live")
	}
}
