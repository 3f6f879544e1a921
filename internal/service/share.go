package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/repository"
	"github.com/sakif/servicecard/internal/share"
	"github.com/sakif/servicecard/internal/storage"
	"github.com/sakif/servicecard/internal/store"
)

// presignMargin is how long before expiry a stored image URL is re-signed.
const presignMargin = time.Hour

// ShareService resolves share links and publishes card images.
type ShareService struct {
	store        *store.Store
	links        *share.Builder
	tokens       *share.TokenService // nil when signed links are disabled
	exporter     ImageExporter
	objects      storage.ObjectStore // nil when publishing is disabled
	publications repository.PublicationRepository
	clk          clock.Clock
	logger       *slog.Logger
}

// ShareDeps groups the collaborators of a ShareService. Tokens and Objects
// are optional.
type ShareDeps struct {
	Store        *store.Store
	Links        *share.Builder
	Tokens       *share.TokenService
	Exporter     ImageExporter
	Objects      storage.ObjectStore
	Publications repository.PublicationRepository
	Clock        clock.Clock
	Logger       *slog.Logger
}

func NewShareService(d ShareDeps) *ShareService {
	return &ShareService{
		store:        d.Store,
		links:        d.Links,
		tokens:       d.Tokens,
		exporter:     d.Exporter,
		objects:      d.Objects,
		publications: d.Publications,
		clk:          d.Clock,
		logger:       d.Logger,
	}
}

// PublishingEnabled reports whether an object store is configured.
func (s *ShareService) PublishingEnabled() bool {
	return s.objects != nil
}

// Resolve returns the card a share page shows: the saved card with id, or
// the current card when id is empty. Unknown ids and cards without a
// provider name resolve to NotFound.
func (s *ShareService) Resolve(id string) (model.Card, error) {
	st := s.store.Snapshot()
	return share.Resolve(st.Current, st.Saved, id)
}

// ResolveToken verifies a signed link and resolves the card it names. Any
// invalid or expired token reads as NotFound.
func (s *ShareService) ResolveToken(token string) (model.Card, error) {
	if s.tokens == nil {
		return model.Card{}, apperror.NotFound("share link", "")
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("share token rejected", slog.String("error", err.Error()))
		return model.Card{}, apperror.NotFound("share link", "")
	}
	return s.Resolve(id)
}

// Links builds the share bundle of a shareable card. A published image
// replaces the default image URL.
func (s *ShareService) Links(ctx context.Context, id string) (share.Links, error) {
	card, err := s.Resolve(id)
	if err != nil {
		return share.Links{}, err
	}
	links, err := s.links.Build(card)
	if err != nil {
		return share.Links{}, fmt.Errorf("service: building share links: %w", err)
	}
	if url := s.publishedImage(ctx, card.ID); url != "" {
		links.UseImage(url)
	}
	return links, nil
}

// Meta describes a resolved card for the social preview tags of its page.
func (s *ShareService) Meta(ctx context.Context, card model.Card) share.Meta {
	shareURL := s.links.ShareURL(card.ID)
	imageURL := s.links.ImageURL(card.ID)
	if url := s.publishedImage(ctx, card.ID); url != "" {
		imageURL = url
	}
	return share.MetaFor(card, shareURL, imageURL)
}

// ShareText is the prefilled social message for card.
func (s *ShareService) ShareText(card model.Card) string {
	return share.ShareText(card)
}

// SocialURLs returns the network share URLs for card's page.
func (s *ShareService) SocialURLs(card model.Card) share.Social {
	return share.SocialURLs(s.links.ShareURL(card.ID), share.ShareText(card))
}

func (s *ShareService) publishedImage(ctx context.Context, cardID string) string {
	if cardID == "" || s.publications == nil {
		return ""
	}
	pub, err := s.publications.GetPublication(ctx, cardID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("looking up publication failed",
				slog.String("cardID", cardID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	if s.clk.Now().Before(pub.PublishedAt.Add(storage.MaxURLExpiry - presignMargin)) {
		return pub.URL
	}
	// The stored URL is expired or about to be; sign a fresh one.
	if s.objects == nil {
		return ""
	}
	url, err := s.objects.URL(ctx, pub.ObjectKey, storage.MaxURLExpiry)
	if err != nil {
		s.logger.Warn("presigning published image failed",
			slog.String("cardID", cardID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return url
}

// Publish exports a saved card, uploads the PNG to object storage and
// records where it lives. Publishing again replaces the previous upload.
func (s *ShareService) Publish(ctx context.Context, id string) (*repository.Publication, error) {
	if s.objects == nil {
		return nil, storage.ErrDisabled
	}
	card, ok := s.store.SavedCard(id)
	if !ok {
		return nil, apperror.NotFound("card", id)
	}

	img, err := s.exporter.Export(ctx, card)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(card.ID)
	if err := s.objects.Put(ctx, key, img.Data, "image/png"); err != nil {
		return nil, fmt.Errorf("service: publishing card %s: %w", id, err)
	}
	url, err := s.objects.URL(ctx, key, storage.MaxURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("service: publishing card %s: %w", id, err)
	}

	pub := repository.Publication{
		CardID:      card.ID,
		ObjectKey:   key,
		URL:         url,
		PublishedAt: s.clk.Now().UTC(),
	}
	if err := s.publications.UpsertPublication(ctx, pub); err != nil {
		return nil, fmt.Errorf("service: recording publication of %s: %w", id, err)
	}

	s.logger.Info("card published",
		slog.String("cardID", card.ID),
		slog.String("key", key),
		slog.Int("bytes", len(img.Data)),
	)
	return &pub, nil
}

// Unpublish removes a published image. Cards that were never published
// resolve to NotFound.
func (s *ShareService) Unpublish(ctx context.Context, id string) error {
	if s.objects == nil {
		return storage.ErrDisabled
	}
	pub, err := s.publications.GetPublication(ctx, id)
	if err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, pub.ObjectKey); err != nil {
		return fmt.Errorf("service: unpublishing card %s: %w", id, err)
	}
	if err := s.publications.DeletePublication(ctx, id); err != nil {
		return fmt.Errorf("service: unpublishing card %s: %w", id, err)
	}
	s.logger.Info("card unpublished", slog.String("cardID", id))
	return nil
}
