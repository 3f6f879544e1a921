package model

import (
	"fmt"
	"maps"
	"strings"
)

// SectionKey names one of the four optional blocks of a card.
type SectionKey string

const (
	SectionTestimonials SectionKey = "testimonials"
	SectionAbout        SectionKey = "about"
	SectionImages       SectionKey = "images"
	SectionAvailability SectionKey = "availability"
)

// SectionKeys lists the optional sections in editor order.
var SectionKeys = []SectionKey{SectionTestimonials, SectionAbout, SectionImages, SectionAvailability}

// ParseSectionKey validates a section name coming from outside the process.
func ParseSectionKey(s string) (SectionKey, error) {
	k := SectionKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SectionKeys {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown optional section %q", s)
}

// Testimonial is a client quote with a 1-5 star rating.
type Testimonial struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author"`
	Rating int    `json:"rating"`
}

// ImageItem is a photo reference shown in the images block.
type ImageItem struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Availability is the status of one weekday.
type Availability string

const (
	Available   Availability = "Available"
	Limited     Availability = "Limited"
	Unavailable Availability = "Unavailable"
)

// Weekdays are the day names used as availability schedule keys.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether a is one of the three known statuses.
func (a Availability) Valid() bool {
	switch a {
	case Available, Limited, Unavailable:
		return true
	}
	return false
}

type TestimonialsSection struct {
	Enabled bool          `json:"enabled"`
	Items   []Testimonial `json:"items"`
}

type AboutSection struct {
	Enabled bool   `json:"enabled"`
	Content string `json:"content"`
}

type ImagesSection struct {
	Enabled bool        `json:"enabled"`
	Items   []ImageItem `json:"items"`
}

type AvailabilitySection struct {
	Enabled  bool                    `json:"enabled"`
	Schedule map[string]Availability `json:"schedule"`
}

// StatusFor returns the status of day, reading a missing entry as Available.
func (a AvailabilitySection) StatusFor(day string) Availability {
	if s, ok := a.Schedule[day]; ok && s != "" {
		return s
	}
	return Available
}

// OptionalSections are independently toggleable. Disabling a section keeps
// its content so it comes back when re-enabled.
type OptionalSections struct {
	Testimonials TestimonialsSection `json:"testimonials"`
	About        AboutSection        `json:"about"`
	Images       ImagesSection       `json:"images"`
	Availability AvailabilitySection `json:"availability"`
}

func (o OptionalSections) clone() OptionalSections {
	out := o
	out.Testimonials.Items = cloneSlice(o.Testimonials.Items)
	out.Images.Items = cloneSlice(o.Images.Items)
	if o.Availability.Schedule != nil {
		out.Availability.Schedule = maps.Clone(o.Availability.Schedule)
	}
	return out
}

// Enabled reports the toggle state of the named section.
func (o OptionalSections) Enabled(key SectionKey) bool {
	switch key {
	case SectionTestimonials:
		return o.Testimonials.Enabled
	case SectionAbout:
		return o.About.Enabled
	case SectionImages:
		return o.Images.Enabled
	case SectionAvailability:
		return o.Availability.Enabled
	}
	return false
}
