package model

import "github.com/rs/xid"

// Service is one priced offering on a card (boarding, a walk, a drop-in...).
// Prices are whole dollars and never negative.
type Service struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Icon               string `json:"icon"` // a short glyph, conventionally at most 2 characters
	Description        string `json:"description"`
	BasePrice          int    `json:"basePrice"`
	AdditionalPetPrice int    `json:"additionalPetPrice"`
	IncludedFeature    string `json:"includedFeature,omitempty"`
	SpecificTerms      string `json:"specificTerms,omitempty"`
}

// DefaultServiceIcon is the glyph given to a newly added service.
const DefaultServiceIcon = "🐾"

// NewID returns a globally unique, URL-safe identifier.
//
// xid ids embed a timestamp, a machine/process id and a per-process counter,
// so two calls in the same millisecond still differ.
func NewID() string {
	return xid.New().String()
}

// NewService returns the template service an editor inserts when the user
// clicks "add service".
func NewService() Service {
	return Service{
		ID:          NewID(),
		Name:        "NEW SERVICE",
		Icon:        DefaultServiceIcon,
		Description: "Describe your service here...",
	}
}
