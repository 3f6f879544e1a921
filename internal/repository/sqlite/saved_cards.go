package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/repository"
)

// Compile-time check that *DB implements the port.
var _ repository.SavedCardRepository = (*DB)(nil)

// LoadSavedCards reads the namespace's record.
//
// A missing row is not an error: a fresh install simply has no saved cards.
// When the payload is corrupt the stored seq is still returned so the next
// write is accepted and replaces the bad payload.
func (db *DB) LoadSavedCards(ctx context.Context, namespace string) (repository.SavedCardsRecord, error) {
	if strings.TrimSpace(namespace) == "" {
		return repository.SavedCardsRecord{}, errors.New("sqlite: namespace is required")
	}

	var (
		payload string
		seq     int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload, seq FROM saved_card_records WHERE namespace = ?`,
		namespace,
	).Scan(&payload, &seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.SavedCardsRecord{Cards: []model.Card{}}, nil
		}
		return repository.SavedCardsRecord{}, fmt.Errorf("sqlite: loading saved cards %s: %w", namespace, err)
	}

	cards, err := model.UnmarshalCards([]byte(payload))
	if err != nil {
		return repository.SavedCardsRecord{Seq: seq}, fmt.Errorf("sqlite: loading saved cards %s: %w", namespace, err)
	}

	return repository.SavedCardsRecord{Cards: cards, Seq: seq}, nil
}

// SaveSavedCards replaces the namespace's record with cards.
//
// UPSERT WITH A SEQUENCE GUARD:
// INSERT ... ON CONFLICT DO UPDATE turns the insert into an update when the
// namespace row already exists. The trailing WHERE makes that update apply
// only when the incoming seq is newer, so a stale write is dropped silently
// and the stored record always reflects the newest snapshot.
func (db *DB) SaveSavedCards(ctx context.Context, namespace string, seq int64, cards []model.Card) error {
	if strings.TrimSpace(namespace) == "" {
		return errors.New("sqlite: namespace is required")
	}

	payload, err := model.MarshalCards(cards)
	if err != nil {
		return fmt.Errorf("sqlite: saving saved cards %s: %w", namespace, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO saved_card_records (namespace, payload, seq, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(namespace) DO UPDATE SET
			payload    = excluded.payload,
			seq        = excluded.seq,
			updated_at = excluded.updated_at
		 WHERE excluded.seq > saved_card_records.seq`,
		namespace,
		string(payload),
		seq,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving saved cards %s: %w", namespace, err)
	}

	return nil
}
