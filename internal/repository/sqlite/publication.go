package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/repository"
)

var _ repository.PublicationRepository = (*DB)(nil)

// UpsertPublication stores p, replacing any earlier publication of the same card.
func (db *DB) UpsertPublication(ctx context.Context, p repository.Publication) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO publications (card_id, object_key, url, published_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(card_id) DO UPDATE SET
			object_key   = excluded.object_key,
			url          = excluded.url,
			published_at = excluded.published_at`,
		p.CardID,
		p.ObjectKey,
		p.URL,
		p.PublishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting publication %s: %w", p.CardID, err)
	}
	return nil
}

// GetPublication returns the latest publication of cardID.
// sql.ErrNoRows is translated to apperror.NotFound so handlers can answer 404.
func (db *DB) GetPublication(ctx context.Context, cardID string) (*repository.Publication, error) {
	var p repository.Publication
	err := db.conn.QueryRowContext(ctx,
		`SELECT card_id, object_key, url, published_at
		 FROM publications
		 WHERE card_id = ?`,
		cardID,
	).Scan(&p.CardID, &p.ObjectKey, &p.URL, &p.PublishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("publication", cardID)
		}
		return nil, fmt.Errorf("sqlite: getting publication %s: %w", cardID, err)
	}
	return &p, nil
}

// DeletePublication forgets cardID's publication. Deleting a card that was
// never published is not an error.
func (db *DB) DeletePublication(ctx context.Context, cardID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM publications WHERE card_id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting publication %s: %w", cardID, err)
	}
	return nil
}
