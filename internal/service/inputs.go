package service

import (
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/patch"
	"github.com/sakif/servicecard/internal/store"
)

// Inputs are what the editor sends. A nil pointer field means "leave as is";
// every non-nil value is validated before a command reaches the store.

// DefaultTestimonialRating is the rating of a newly added testimonial.
const DefaultTestimonialRating = 5

const maxHolidayDates = 50

type ProviderInfoInput struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	Email     *string `json:"email" validate:"omitempty,max=254"`
	Address   *string `json:"address" validate:"omitempty,max=200"`
	Apartment *string `json:"apartment" validate:"omitempty,max=40"`
	Year      *int    `json:"year" validate:"omitempty,gte=2020,lte=2030"`
}

func (in ProviderInfoInput) patch() store.ProviderInfoPatch {
	return store.ProviderInfoPatch{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		Apartment: in.Apartment,
		Year:      in.Year,
	}
}

type ServiceInput struct {
	Name               *string `json:"name" validate:"omitempty,max=100"`
	Icon               *string `json:"icon" validate:"omitempty,max=8"`
	Description        *string `json:"description" validate:"omitempty,max=2000"`
	BasePrice          *int    `json:"basePrice" validate:"omitempty,gte=0,lte=100000"`
	AdditionalPetPrice *int    `json:"additionalPetPrice" validate:"omitempty,gte=0,lte=100000"`
	IncludedFeature    *string `json:"includedFeature" validate:"omitempty,max=200"`
	SpecificTerms      *string `json:"specificTerms" validate:"omitempty,max=200"`
}

func (in ServiceInput) patch() store.ServicePatch {
	return store.ServicePatch{
		Name:               in.Name,
		Icon:               in.Icon,
		Description:        in.Description,
		BasePrice:          in.BasePrice,
		AdditionalPetPrice: in.AdditionalPetPrice,
		IncludedFeature:    in.IncludedFeature,
		SpecificTerms:      in.SpecificTerms,
	}
}

func (in ServiceInput) applyTo(s model.Service) model.Service {
	s.Name = patch.Coalesce(in.Name, s.Name)
	s.Icon = patch.Coalesce(in.Icon, s.Icon)
	s.Description = patch.Coalesce(in.Description, s.Description)
	s.BasePrice = patch.Coalesce(in.BasePrice, s.BasePrice)
	s.AdditionalPetPrice = patch.Coalesce(in.AdditionalPetPrice, s.AdditionalPetPrice)
	s.IncludedFeature = patch.Coalesce(in.IncludedFeature, s.IncludedFeature)
	s.SpecificTerms = patch.Coalesce(in.SpecificTerms, s.SpecificTerms)
	return s
}

type HolidayRateInput struct {
	Enabled          *bool    `json:"enabled"`
	AdditionalCharge *int     `json:"additionalCharge" validate:"omitempty,gte=0,lte=100000"`
	Dates            []string `json:"dates" validate:"omitempty,max=50,dive,max=100"`
}

func (in HolidayRateInput) patch() store.HolidayRatePatch {
	return store.HolidayRatePatch{
		Enabled:          in.Enabled,
		AdditionalCharge: in.AdditionalCharge,
		Dates:            in.Dates,
	}
}

// HolidayDateInput is one holiday date label.
type HolidayDateInput struct {
	Date string `json:"date" validate:"max=100"`
}

type TestimonialInput struct {
	ID     string `json:"id" validate:"max=64"`
	Text   string `json:"text" validate:"max=2000"`
	Author string `json:"author" validate:"max=100"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
}

func (in TestimonialInput) testimonial() model.Testimonial {
	return model.Testimonial{ID: in.ID, Text: in.Text, Author: in.Author, Rating: in.Rating}
}

// TestimonialPatchInput edits one testimonial.
type TestimonialPatchInput struct {
	Text   *string `json:"text" validate:"omitempty,max=2000"`
	Author *string `json:"author" validate:"omitempty,max=100"`
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

type ImageInput struct {
	ID      string `json:"id" validate:"max=64"`
	URL     string `json:"url" validate:"required,http_url,max=2048"`
	Caption string `json:"caption" validate:"max=200"`
}

// SectionInput patches one optional section. Only the fields belonging to
// the targeted section are used.
type SectionInput struct {
	Enabled      *bool              `json:"enabled"`
	Testimonials []TestimonialInput `json:"testimonials" validate:"omitempty,max=50,dive"`
	Content      *string            `json:"content" validate:"omitempty,max=2000"`
	Images       []ImageInput       `json:"images" validate:"omitempty,max=20,dive"`
	Schedule     map[string]string  `json:"schedule" validate:"omitempty,dive,keys,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday,endkeys,oneof=Available Limited Unavailable"`
}

// patch converts the input for the given section. List items without an id
// get one from newID.
func (in SectionInput) patch(key model.SectionKey, newID func() string) store.SectionPatch {
	p := store.SectionPatch{Enabled: in.Enabled, Content: in.Content}

	switch key {
	case model.SectionTestimonials:
		if in.Testimonials != nil {
			p.Testimonials = make([]model.Testimonial, len(in.Testimonials))
			for i, t := range in.Testimonials {
				p.Testimonials[i] = t.testimonial()
				if p.Testimonials[i].ID == "" {
					p.Testimonials[i].ID = newID()
				}
			}
		}
	case model.SectionImages:
		if in.Images != nil {
			p.Images = make([]model.ImageItem, len(in.Images))
			for i, img := range in.Images {
				p.Images[i] = model.ImageItem{ID: img.ID, URL: img.URL, Caption: img.Caption}
				if img.ID == "" {
					p.Images[i].ID = newID()
				}
			}
		}
	case model.SectionAvailability:
		if len(in.Schedule) > 0 {
			p.Schedule = make(map[string]model.Availability, len(in.Schedule))
			for day, status := range in.Schedule {
				p.Schedule[day] = model.Availability(status)
			}
		}
	}
	return p
}

// TextInput carries the target-audience or general-inclusions line.
type TextInput struct {
	Text string `json:"text" validate:"max=200"`
}

type DesignInput struct {
	PrimaryColor   *string `json:"primaryColor" validate:"omitempty,hexcolor"`
	SecondaryColor *string `json:"secondaryColor" validate:"omitempty,hexcolor"`
	AccentColor    *string `json:"accentColor" validate:"omitempty,hexcolor"`
}

func (in DesignInput) patch() store.DesignPatch {
	return store.DesignPatch{
		PrimaryColor:   in.PrimaryColor,
		SecondaryColor: in.SecondaryColor,
		AccentColor:    in.AccentColor,
	}
}
