package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/repository"
)

func TestPublication_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)

	first := repository.Publication{CardID: "c1", ObjectKey: "cards/c1/v1.png", URL: "https://cdn/v1.png", PublishedAt: at}
	if err := db.UpsertPublication(ctx, first); err != nil {
		t.Fatalf("UpsertPublication() error = %v", err)
	}

	second := first
	second.ObjectKey = "cards/c1/v2.png"
	second.URL = "https://cdn/v2.png"
	second.PublishedAt = at.Add(time.Hour)
	if err := db.UpsertPublication(ctx, second); err != nil {
		t.Fatalf("UpsertPublication() second error = %v", err)
	}

	got, err := db.GetPublication(ctx, "c1")
	if err != nil {
		t.Fatalf("GetPublication() error = %v", err)
	}
	if got.ObjectKey != second.ObjectKey || got.URL != second.URL {
		t.Errorf("GetPublication() = %+v, want the latest upsert", got)
	}
	if !got.PublishedAt.Equal(second.PublishedAt) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, second.PublishedAt)
	}
}

func TestPublication_GetMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPublication(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPublication() error = %v, want ErrNotFound", err)
	}
}

func TestPublication_Delete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := repository.Publication{CardID: "c1", ObjectKey: "k", URL: "u", PublishedAt: time.Now()}
	if err := db.UpsertPublication(ctx, p); err != nil {
		t.Fatalf("UpsertPublication() error = %v", err)
	}
	if err := db.DeletePublication(ctx, "c1"); err != nil {
		t.Fatalf("DeletePublication() error = %v", err)
	}
	if _, err := db.GetPublication(ctx, "c1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete, GetPublication() error = %v, want ErrNotFound", err)
	}

	// Deleting again is fine.
	if err := db.DeletePublication(ctx, "c1"); err != nil {
		t.Errorf("second DeletePublication() error = %v", err)
	}
}
