// Package model defines the data structures used throughout the application.
//
// The central aggregate is Card: one provider's service offering, its design
// theme and the optional presentation blocks. Cards are values. The store
// never hands out a Card that someone else can mutate; Clone produces an
// independent copy whenever a snapshot changes.
package model

import (
	"strings"
	"time"
)

// Year bounds accepted by the editor for ProviderInfo.Year.
const (
	MinYear = 2020
	MaxYear = 2030
)

// ProviderInfo identifies who offers the services on the card.
// Year is 0 when unset; renderers substitute the current year.
type ProviderInfo struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Apartment string `json:"apartment"`
	Year      int    `json:"year"`
}

// HolidayRate is an optional surcharge shown with the dates it applies to.
type HolidayRate struct {
	Enabled          bool     `json:"enabled"`
	AdditionalCharge int      `json:"additionalCharge"`
	Dates            []string `json:"dates"`
}

// Design holds the three theme colors as hex strings ("#008080").
// PrimaryColor paints the header, holiday band and footer; SecondaryColor is
// the card background; AccentColor highlights prices and the audience pill.
type Design struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	AccentColor    string `json:"accentColor"`
}

// Card is the complete structured description of one provider's offering.
//
// ID is empty for an unsaved, in-progress card. SavedAt is set only when the
// card is persisted.
type Card struct {
	ID                string           `json:"id,omitempty"`
	ProviderInfo      ProviderInfo     `json:"providerInfo"`
	Services          []Service        `json:"services"`
	HolidayRate       HolidayRate      `json:"holidayRate"`
	TargetAudience    string           `json:"targetAudience"`
	GeneralInclusions string           `json:"generalInclusions"`
	OptionalSections  OptionalSections `json:"optionalSections"`
	Design            Design           `json:"design"`
	SavedAt           *time.Time       `json:"savedAt,omitempty"`
}

// DefaultDesign is the "Classic Teal" theme every new card starts with.
func DefaultDesign() Design {
	return Design{
		PrimaryColor:   "#008080",
		SecondaryColor: "#F5F5DC",
		AccentColor:    "#FF6B35",
	}
}

// NewCard returns a fresh, empty, unsaved card for the given year.
func NewCard(year int) Card {
	return Card{
		ProviderInfo: ProviderInfo{Year: year},
		Services:     []Service{},
		HolidayRate: HolidayRate{
			Dates: []string{},
		},
		OptionalSections: OptionalSections{
			Testimonials: TestimonialsSection{Items: []Testimonial{}},
			Images:       ImagesSection{Items: []ImageItem{}},
			Availability: AvailabilitySection{Schedule: map[string]Availability{}},
		},
		Design: DefaultDesign(),
	}
}

// HasMeaningfulContent is the minimum-data predicate gating preview, save
// and export: a provider name, at least one service, or a non-blank footer
// line (target audience or general inclusions).
func (c Card) HasMeaningfulContent() bool {
	if strings.TrimSpace(c.ProviderInfo.Name) != "" {
		return true
	}
	if len(c.Services) > 0 {
		return true
	}
	return strings.TrimSpace(c.TargetAudience) != "" ||
		strings.TrimSpace(c.GeneralInclusions) != ""
}

// ServiceIndex returns the position of the service with the given id, or -1.
func (c Card) ServiceIndex(id string) int {
	for i, s := range c.Services {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of c. Nil collections stay nil and empty ones stay
// empty, so a clone compares equal to its source.
func (c Card) Clone() Card {
	out := c
	out.Services = cloneSlice(c.Services)
	out.HolidayRate.Dates = cloneSlice(c.HolidayRate.Dates)
	out.OptionalSections = c.OptionalSections.clone()
	if c.SavedAt != nil {
		t := *c.SavedAt
		out.SavedAt = &t
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
