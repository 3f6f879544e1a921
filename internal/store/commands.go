package store

import (
	"maps"
	"slices"
	"time"

	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/patch"
)

// Command is one of the closed set of named state operations.
//
// The interface is sealed: apply is unexported, so only the variants in this
// file can be dispatched and each one must say how it transforms a snapshot.
// apply never mutates s in place; anything it changes is copied first.
type Command interface {
	// Kind is the stable operation name used in logs.
	Kind() string
	apply(s State, e env) (State, effect)
}

type effect uint8

const (
	changedCurrent effect = 1 << iota
	changedSaved

	unchanged effect = 0
)

type env struct {
	now   func() time.Time
	newID func() string
}

// ---------------------------------------------------------------------------
// Patch types: nil fields are left untouched by a merge.
// ---------------------------------------------------------------------------

type ProviderInfoPatch struct {
	Name      *string
	Phone     *string
	Email     *string
	Address   *string
	Apartment *string
	Year      *int
}

func (p ProviderInfoPatch) mergeInto(info model.ProviderInfo) model.ProviderInfo {
	info.Name = patch.Coalesce(p.Name, info.Name)
	info.Phone = patch.Coalesce(p.Phone, info.Phone)
	info.Email = patch.Coalesce(p.Email, info.Email)
	info.Address = patch.Coalesce(p.Address, info.Address)
	info.Apartment = patch.Coalesce(p.Apartment, info.Apartment)
	info.Year = patch.Coalesce(p.Year, info.Year)
	return info
}

type ServicePatch struct {
	Name               *string
	Icon               *string
	Description        *string
	BasePrice          *int
	AdditionalPetPrice *int
	IncludedFeature    *string
	SpecificTerms      *string
}

func (p ServicePatch) mergeInto(s model.Service) model.Service {
	s.Name = patch.Coalesce(p.Name, s.Name)
	s.Icon = patch.Coalesce(p.Icon, s.Icon)
	s.Description = patch.Coalesce(p.Description, s.Description)
	s.BasePrice = patch.Coalesce(p.BasePrice, s.BasePrice)
	s.AdditionalPetPrice = patch.Coalesce(p.AdditionalPetPrice, s.AdditionalPetPrice)
	s.IncludedFeature = patch.Coalesce(p.IncludedFeature, s.IncludedFeature)
	s.SpecificTerms = patch.Coalesce(p.SpecificTerms, s.SpecificTerms)
	return s
}

type HolidayRatePatch struct {
	Enabled          *bool
	AdditionalCharge *int
	Dates            []string // nil leaves dates untouched; empty clears them
}

// SectionPatch carries the fields of any optional section. Only the fields
// that belong to the targeted section are read; the rest are ignored.
type SectionPatch struct {
	Enabled      *bool
	Testimonials []model.Testimonial            // testimonials: replaces the items when non-nil
	Content      *string                        // about
	Images       []model.ImageItem              // images: replaces the items when non-nil
	Schedule     map[string]model.Availability // availability: merged day by day
}

type DesignPatch struct {
	PrimaryColor   *string
	SecondaryColor *string
	AccentColor    *string
}

// ---------------------------------------------------------------------------
// Current-card commands
// ---------------------------------------------------------------------------

// UpdateProviderInfo merges the patch into the current card's provider info.
type UpdateProviderInfo struct{ Patch ProviderInfoPatch }

func (UpdateProviderInfo) Kind() string { return "updateProviderInfo" }

func (c UpdateProviderInfo) apply(s State, _ env) (State, effect) {
	merged := c.Patch.mergeInto(s.Current.ProviderInfo)
	if merged == s.Current.ProviderInfo {
		return s, unchanged
	}
	s.Current.ProviderInfo = merged
	return s, changedCurrent
}

// AddService appends a service. An empty or already used id is replaced by a
// fresh one so ids stay unique within the card.
type AddService struct{ Service model.Service }

func (AddService) Kind() string { return "addService" }

func (c AddService) apply(s State, e env) (State, effect) {
	svc := c.Service
	if svc.ID == "" || s.Current.ServiceIndex(svc.ID) >= 0 {
		svc.ID = e.newID()
	}
	services := make([]model.Service, 0, len(s.Current.Services)+1)
	services = append(services, s.Current.Services...)
	s.Current.Services = append(services, svc)
	return s, changedCurrent
}

// UpdateService merges the patch into the service with the given id. An
// unknown id is a no-op, so a removed service is never resurrected.
type UpdateService struct {
	ID    string
	Patch ServicePatch
}

func (UpdateService) Kind() string { return "updateService" }

func (c UpdateService) apply(s State, _ env) (State, effect) {
	i := s.Current.ServiceIndex(c.ID)
	if i < 0 {
		return s, unchanged
	}
	merged := c.Patch.mergeInto(s.Current.Services[i])
	if merged == s.Current.Services[i] {
		return s, unchanged
	}
	services := slices.Clone(s.Current.Services)
	services[i] = merged
	s.Current.Services = services
	return s, changedCurrent
}

// RemoveService filters the service with the given id out of the card.
type RemoveService struct{ ID string }

func (RemoveService) Kind() string { return "removeService" }

func (c RemoveService) apply(s State, _ env) (State, effect) {
	if s.Current.ServiceIndex(c.ID) < 0 {
		return s, unchanged
	}
	services := make([]model.Service, 0, len(s.Current.Services)-1)
	for _, svc := range s.Current.Services {
		if svc.ID != c.ID {
			services = append(services, svc)
		}
	}
	s.Current.Services = services
	return s, changedCurrent
}

// UpdateHolidayRate merges the patch into the holiday rate.
type UpdateHolidayRate struct{ Patch HolidayRatePatch }

func (UpdateHolidayRate) Kind() string { return "updateHolidayRate" }

func (c UpdateHolidayRate) apply(s State, _ env) (State, effect) {
	hr := s.Current.HolidayRate
	hr.Enabled = patch.Coalesce(c.Patch.Enabled, hr.Enabled)
	hr.AdditionalCharge = patch.Coalesce(c.Patch.AdditionalCharge, hr.AdditionalCharge)
	if c.Patch.Dates != nil {
		hr.Dates = slices.Clone(c.Patch.Dates)
	}
	if hr.Enabled == s.Current.HolidayRate.Enabled &&
		hr.AdditionalCharge == s.Current.HolidayRate.AdditionalCharge &&
		sameItems(hr.Dates, s.Current.HolidayRate.Dates) {
		return s, unchanged
	}
	s.Current.HolidayRate = hr
	return s, changedCurrent
}

// UpdateOptionalSection merges the patch into one optional section only.
// An unknown section key is a no-op.
type UpdateOptionalSection struct {
	Section model.SectionKey
	Patch   SectionPatch
}

func (UpdateOptionalSection) Kind() string { return "updateOptionalSection" }

func (c UpdateOptionalSection) apply(s State, _ env) (State, effect) {
	sections := s.Current.OptionalSections
	p := c.Patch

	switch c.Section {
	case model.SectionTestimonials:
		sections.Testimonials.Enabled = patch.Coalesce(p.Enabled, sections.Testimonials.Enabled)
		if p.Testimonials != nil {
			sections.Testimonials.Items = slices.Clone(p.Testimonials)
		}
	case model.SectionAbout:
		sections.About.Enabled = patch.Coalesce(p.Enabled, sections.About.Enabled)
		sections.About.Content = patch.Coalesce(p.Content, sections.About.Content)
	case model.SectionImages:
		sections.Images.Enabled = patch.Coalesce(p.Enabled, sections.Images.Enabled)
		if p.Images != nil {
			sections.Images.Items = slices.Clone(p.Images)
		}
	case model.SectionAvailability:
		sections.Availability.Enabled = patch.Coalesce(p.Enabled, sections.Availability.Enabled)
		if len(p.Schedule) > 0 {
			schedule := make(map[string]model.Availability, len(sections.Availability.Schedule)+len(p.Schedule))
			maps.Copy(schedule, sections.Availability.Schedule)
			maps.Copy(schedule, p.Schedule)
			sections.Availability.Schedule = schedule
		}
	default:
		return s, unchanged
	}

	if sameSections(sections, s.Current.OptionalSections) {
		return s, unchanged
	}
	s.Current.OptionalSections = sections
	return s, changedCurrent
}

func sameSections(a, b model.OptionalSections) bool {
	return a.Testimonials.Enabled == b.Testimonials.Enabled &&
		sameItems(a.Testimonials.Items, b.Testimonials.Items) &&
		a.About == b.About &&
		a.Images.Enabled == b.Images.Enabled &&
		sameItems(a.Images.Items, b.Images.Items) &&
		a.Availability.Enabled == b.Availability.Enabled &&
		maps.Equal(a.Availability.Schedule, b.Availability.Schedule)
}

// sameItems is slices.Equal that also tells nil from empty.
func sameItems[T comparable](a, b []T) bool {
	return (a == nil) == (b == nil) && slices.Equal(a, b)
}

// UpdateTargetAudience replaces the target-audience text.
type UpdateTargetAudience struct{ Text string }

func (UpdateTargetAudience) Kind() string { return "updateTargetAudience" }

func (c UpdateTargetAudience) apply(s State, _ env) (State, effect) {
	if s.Current.TargetAudience == c.Text {
		return s, unchanged
	}
	s.Current.TargetAudience = c.Text
	return s, changedCurrent
}

// UpdateGeneralInclusions replaces the general-inclusions text.
type UpdateGeneralInclusions struct{ Text string }

func (UpdateGeneralInclusions) Kind() string { return "updateGeneralInclusions" }

func (c UpdateGeneralInclusions) apply(s State, _ env) (State, effect) {
	if s.Current.GeneralInclusions == c.Text {
		return s, unchanged
	}
	s.Current.GeneralInclusions = c.Text
	return s, changedCurrent
}

// UpdateDesign merges the patch into the design colors.
type UpdateDesign struct{ Patch DesignPatch }

func (UpdateDesign) Kind() string { return "updateDesign" }

func (c UpdateDesign) apply(s State, _ env) (State, effect) {
	d := s.Current.Design
	d.PrimaryColor = patch.Coalesce(c.Patch.PrimaryColor, d.PrimaryColor)
	d.SecondaryColor = patch.Coalesce(c.Patch.SecondaryColor, d.SecondaryColor)
	d.AccentColor = patch.Coalesce(c.Patch.AccentColor, d.AccentColor)
	if d == s.Current.Design {
		return s, unchanged
	}
	s.Current.Design = d
	return s, changedCurrent
}

// ---------------------------------------------------------------------------
// Lifecycle commands
// ---------------------------------------------------------------------------

// SaveCard stamps the current card with an id (kept if already present) and
// the save time, then upserts it into the saved cards: any entry with the
// same id is dropped and the new copy is appended. The current card becomes
// the saved copy. A card without meaningful content is never saved.
type SaveCard struct{}

func (SaveCard) Kind() string { return "saveCard" }

func (SaveCard) apply(s State, e env) (State, effect) {
	if !s.Current.HasMeaningfulContent() {
		return s, unchanged
	}
	saved := s.Current.Clone()
	if saved.ID == "" {
		saved.ID = e.newID()
	}
	at := e.now()
	saved.SavedAt = &at

	cards := make([]model.Card, 0, len(s.Saved)+1)
	for _, c := range s.Saved {
		if c.ID != saved.ID {
			cards = append(cards, c)
		}
	}
	s.Saved = append(cards, saved)
	s.Current = saved.Clone()
	return s, changedCurrent | changedSaved
}

// LoadCard replaces the current card wholesale.
type LoadCard struct{ Card model.Card }

func (LoadCard) Kind() string { return "loadCard" }

func (c LoadCard) apply(s State, _ env) (State, effect) {
	s.Current = c.Card.Clone()
	return s, changedCurrent
}

// ResetCard replaces the current card with a fresh, unsaved one.
type ResetCard struct{}

func (ResetCard) Kind() string { return "resetCard" }

func (ResetCard) apply(s State, e env) (State, effect) {
	s.Current = model.NewCard(e.now().Year())
	return s, changedCurrent
}

// DeleteCard removes a saved card by id. The current card is not touched.
type DeleteCard struct{ ID string }

func (DeleteCard) Kind() string { return "deleteCard" }

func (c DeleteCard) apply(s State, _ env) (State, effect) {
	cards := make([]model.Card, 0, len(s.Saved))
	for _, card := range s.Saved {
		if card.ID != c.ID {
			cards = append(cards, card)
		}
	}
	if len(cards) == len(s.Saved) {
		return s, unchanged
	}
	s.Saved = cards
	return s, changedSaved
}

// ClearSavedCards empties the saved cards.
type ClearSavedCards struct{}

func (ClearSavedCards) Kind() string { return "clearSavedCards" }

func (ClearSavedCards) apply(s State, _ env) (State, effect) {
	if len(s.Saved) == 0 {
		return s, unchanged
	}
	s.Saved = []model.Card{}
	return s, changedSaved
}
