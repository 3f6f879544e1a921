// Package service is the editor boundary: it validates what the editor sends,
// turns it into store commands and orchestrates export and sharing.
//
// The store trusts its callers and never validates. Everything that can be
// wrong with user input (negative prices, a year out of range, an unknown
// section) is rejected here with a ValidationError before a command is
// dispatched, so a rejected edit leaves the store untouched.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, gates save/export, orchestrates
//	Store           → applies commands, persists saved cards
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/catalog"
	"github.com/sakif/servicecard/internal/export"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/render"
	"github.com/sakif/servicecard/internal/storage"
	"github.com/sakif/servicecard/internal/store"
)

// ImageExporter produces the PNG of a card.
type ImageExporter interface {
	Export(ctx context.Context, card model.Card) (*export.Image, error)
}

// Unpublisher removes the published image of a saved card.
type Unpublisher interface {
	Unpublish(ctx context.Context, id string) error
}

// CardService edits the current card and manages the saved cards.
type CardService struct {
	store       *store.Store
	renderer    *render.Renderer
	exporter    ImageExporter
	unpublisher Unpublisher // nil when nothing is ever published
	logger      *slog.Logger
	newID       func() string
}

// CardOption customizes a CardService.
type CardOption func(*CardService)

// WithUnpublisher makes Delete and Clear take down published images of the
// removed cards.
func WithUnpublisher(u Unpublisher) CardOption {
	return func(s *CardService) { s.unpublisher = u }
}

func NewCardService(st *store.Store, renderer *render.Renderer, exporter ImageExporter, logger *slog.Logger, opts ...CardOption) *CardService {
	s := &CardService{
		store:    st,
		renderer: renderer,
		exporter: exporter,
		logger:   logger,
		newID:    model.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the latest snapshot.
func (s *CardService) State() store.State {
	return s.store.Snapshot()
}

// SavedCards lists the saved cards in save order.
func (s *CardService) SavedCards() []model.Card {
	return s.store.Snapshot().Saved
}

// SavedCard returns one saved card.
func (s *CardService) SavedCard(id string) (model.Card, error) {
	card, ok := s.store.SavedCard(id)
	if !ok {
		return model.Card{}, apperror.NotFound("card", id)
	}
	return card, nil
}

// === CURRENT CARD ===

func (s *CardService) UpdateProviderInfo(in ProviderInfoInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateProviderInfo{Patch: in.patch()}), nil
}

// AddService appends a service built from the "new service" template with
// in merged on top. A nil in adds the bare template.
func (s *CardService) AddService(in *ServiceInput) (store.State, error) {
	svc := model.NewService()
	svc.ID = s.newID()
	if in != nil {
		if err := validateInput(*in); err != nil {
			return store.State{}, err
		}
		svc = in.applyTo(svc)
	}
	return s.store.Dispatch(store.AddService{Service: svc}), nil
}

// UpdateService merges in into the service with the given id.
func (s *CardService) UpdateService(id string, in ServiceInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	if err := s.requireService(id); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateService{ID: id, Patch: in.patch()}), nil
}

func (s *CardService) RemoveService(id string) (store.State, error) {
	if err := s.requireService(id); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.RemoveService{ID: id}), nil
}

func (s *CardService) requireService(id string) error {
	if s.store.Current().ServiceIndex(id) < 0 {
		return apperror.NotFound("service", id)
	}
	return nil
}

func (s *CardService) UpdateHolidayRate(in HolidayRateInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateHolidayRate{Patch: in.patch()}), nil
}

// AddHolidayDate appends a date label. Blank labels are ignored.
func (s *CardService) AddHolidayDate(in HolidayDateInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	if len(s.store.Current().HolidayRate.Dates) >= maxHolidayDates {
		return store.State{}, apperror.ValidationFailed("dates", "too many holiday dates")
	}
	return s.store.Dispatch(store.AddHolidayDate{Date: in.Date}), nil
}

func (s *CardService) EditHolidayDate(index int, in HolidayDateInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	if err := s.requireHolidayDate(index); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.EditHolidayDate{Index: index, Date: in.Date}), nil
}

func (s *CardService) RemoveHolidayDate(index int) (store.State, error) {
	if err := s.requireHolidayDate(index); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.RemoveHolidayDate{Index: index}), nil
}

func (s *CardService) requireHolidayDate(index int) error {
	if index < 0 || index >= len(s.store.Current().HolidayRate.Dates) {
		return apperror.ValidationFailed("index", "no holiday date at that position")
	}
	return nil
}

// UpdateSection patches the named optional section.
func (s *CardService) UpdateSection(name string, in SectionInput) (store.State, error) {
	key, err := model.ParseSectionKey(name)
	if err != nil {
		return store.State{}, apperror.ValidationFailed("section", err.Error())
	}
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateOptionalSection{Section: key, Patch: in.patch(key, s.newID)}), nil
}

// AddTestimonial appends a testimonial. A nil in adds a blank five-star one.
func (s *CardService) AddTestimonial(in *TestimonialInput) (store.State, error) {
	t := model.Testimonial{Rating: DefaultTestimonialRating}
	if in != nil {
		if err := validateInput(*in); err != nil {
			return store.State{}, err
		}
		t = in.testimonial()
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	return s.store.Dispatch(store.AddTestimonial{Testimonial: t}), nil
}

func (s *CardService) UpdateTestimonial(id string, in TestimonialPatchInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	if err := s.requireTestimonial(id); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateTestimonial{ID: id, Patch: store.TestimonialPatch{
		Text:   in.Text,
		Author: in.Author,
		Rating: in.Rating,
	}}), nil
}

func (s *CardService) RemoveTestimonial(id string) (store.State, error) {
	if err := s.requireTestimonial(id); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.RemoveTestimonial{ID: id}), nil
}

func (s *CardService) requireTestimonial(id string) error {
	for _, t := range s.store.Current().OptionalSections.Testimonials.Items {
		if t.ID == id {
			return nil
		}
	}
	return apperror.NotFound("testimonial", id)
}

func (s *CardService) UpdateTargetAudience(in TextInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateTargetAudience{Text: in.Text}), nil
}

func (s *CardService) UpdateGeneralInclusions(in TextInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateGeneralInclusions{Text: in.Text}), nil
}

func (s *CardService) UpdateDesign(in DesignInput) (store.State, error) {
	if err := validateInput(in); err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.UpdateDesign{Patch: in.patch()}), nil
}

// ApplyTheme sets all three design colors from a named preset.
func (s *CardService) ApplyTheme(name string) (store.State, error) {
	theme, ok := catalog.ThemeByName(name)
	if !ok {
		return store.State{}, apperror.NotFound("theme", name)
	}
	d := theme.Design
	return s.store.Dispatch(store.UpdateDesign{Patch: store.DesignPatch{
		PrimaryColor:   &d.PrimaryColor,
		SecondaryColor: &d.SecondaryColor,
		AccentColor:    &d.AccentColor,
	}}), nil
}

// === LIFECYCLE ===

// Save stores the current card under its id (assigning one if needed) and
// waits for the saved cards to reach durable storage. A PersistenceError is
// returned together with the new state: the card is saved in memory but may
// not survive a restart.
func (s *CardService) Save(ctx context.Context) (store.State, error) {
	if !s.store.Current().HasMeaningfulContent() {
		return store.State{}, apperror.EmptyCard("save the card")
	}
	st := s.store.Dispatch(store.SaveCard{})
	if st.Current.ID == "" {
		// The card was emptied between the check and the dispatch.
		return store.State{}, apperror.EmptyCard("save the card")
	}

	s.logger.Info("card saved",
		slog.String("id", st.Current.ID),
		slog.String("provider", st.Current.ProviderInfo.Name),
		slog.Int("savedCards", len(st.Saved)),
	)
	return st, s.persist(ctx)
}

// Load makes a saved card the current card.
func (s *CardService) Load(id string) (store.State, error) {
	card, err := s.SavedCard(id)
	if err != nil {
		return store.State{}, err
	}
	return s.store.Dispatch(store.LoadCard{Card: card}), nil
}

// Reset starts a fresh, unsaved card.
func (s *CardService) Reset() store.State {
	return s.store.Dispatch(store.ResetCard{})
}

// Delete removes a saved card. The current card is not touched.
func (s *CardService) Delete(ctx context.Context, id string) (store.State, error) {
	if _, err := s.SavedCard(id); err != nil {
		return store.State{}, err
	}
	st := s.store.Dispatch(store.DeleteCard{ID: id})
	s.logger.Info("card deleted", slog.String("id", id), slog.Int("savedCards", len(st.Saved)))
	s.unpublish(ctx, id)
	return st, s.persist(ctx)
}

// Clear removes every saved card.
func (s *CardService) Clear(ctx context.Context) (store.State, error) {
	removed := s.store.Snapshot().Saved
	st := s.store.Dispatch(store.ClearSavedCards{})
	s.logger.Info("saved cards cleared", slog.Int("removed", len(removed)))
	for _, card := range removed {
		s.unpublish(ctx, card.ID)
	}
	return st, s.persist(ctx)
}

// unpublish takes down the published image of a removed card. Failures are
// logged; the card is gone either way.
func (s *CardService) unpublish(ctx context.Context, id string) {
	if s.unpublisher == nil {
		return
	}
	err := s.unpublisher.Unpublish(ctx, id)
	if err == nil || errors.Is(err, apperror.ErrNotFound) || errors.Is(err, storage.ErrDisabled) {
		return
	}
	s.logger.Warn("removing published image failed",
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
}

func (s *CardService) persist(ctx context.Context) error {
	err := s.store.Flush(ctx)
	if err != nil && errors.Is(err, apperror.ErrPersistence) {
		s.logger.Warn("saved cards kept in memory only", slog.String("error", err.Error()))
	}
	return err
}

// === VIEWS ===

// Preview renders the current card. mode is "full" (default) or "compact".
// A card without meaningful content renders as an empty tree.
func (s *CardService) Preview(mode string) (render.Tree, error) {
	m, err := render.ParseMode(strings.TrimSpace(mode))
	if err != nil {
		return render.Tree{}, apperror.ValidationFailed("mode", err.Error())
	}
	return s.renderer.Render(s.store.Current(), m), nil
}

// Export produces the PNG of a saved card, or of the current card when id
// is empty.
func (s *CardService) Export(ctx context.Context, id string) (*export.Image, error) {
	card := s.store.Current()
	if id != "" {
		var err error
		if card, err = s.SavedCard(id); err != nil {
			return nil, err
		}
	}
	return s.exporter.Export(ctx, card)
}
