// Package repository declares the storage ports the rest of the application
// depends on. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/servicecard/internal/model"
)

// SavedCardsRecord is the single durable entry holding a namespace's saved
// cards. Seq is the sequence number of the write that produced it; 0 means
// nothing has been written yet.
type SavedCardsRecord struct {
	Cards []model.Card
	Seq   int64
}

// SavedCardRepository persists the whole saved-cards collection as one record
// per namespace. Writes replace the full collection (last write wins); a write
// whose seq is not newer than the stored one is ignored, so two writes that
// complete out of order cannot regress the record.
type SavedCardRepository interface {
	// LoadSavedCards returns the record for namespace. A namespace that was
	// never written yields an empty record and no error. When the stored
	// payload cannot be decoded, the returned record still carries the stored
	// Seq alongside the error.
	LoadSavedCards(ctx context.Context, namespace string) (SavedCardsRecord, error)

	// SaveSavedCards writes cards as the namespace's record if seq is newer
	// than the stored one.
	SaveSavedCards(ctx context.Context, namespace string, seq int64, cards []model.Card) error
}

// Publication records where an exported card image was uploaded.
type Publication struct {
	CardID      string
	ObjectKey   string
	URL         string
	PublishedAt time.Time
}

// PublicationRepository remembers the latest published image per saved card.
type PublicationRepository interface {
	UpsertPublication(ctx context.Context, p Publication) error
	GetPublication(ctx context.Context, cardID string) (*Publication, error)
	DeletePublication(ctx context.Context, cardID string) error
}
