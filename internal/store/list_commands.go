package store

import (
	"slices"
	"strings"

	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/patch"
)

// Item-level edits of the holiday dates and testimonials. They could be
// expressed as whole-list updates, but running them as commands keeps two
// concurrent edits from overwriting each other.

// AddHolidayDate appends a trimmed date label. A blank label is ignored.
type AddHolidayDate struct{ Date string }

func (AddHolidayDate) Kind() string { return "addHolidayDate" }

func (c AddHolidayDate) apply(s State, _ env) (State, effect) {
	date := strings.TrimSpace(c.Date)
	if date == "" {
		return s, unchanged
	}
	dates := make([]string, 0, len(s.Current.HolidayRate.Dates)+1)
	dates = append(dates, s.Current.HolidayRate.Dates...)
	s.Current.HolidayRate.Dates = append(dates, date)
	return s, changedCurrent
}

// EditHolidayDate replaces the date at Index. An index out of range is a no-op.
type EditHolidayDate struct {
	Index int
	Date  string
}

func (EditHolidayDate) Kind() string { return "editHolidayDate" }

func (c EditHolidayDate) apply(s State, _ env) (State, effect) {
	dates := s.Current.HolidayRate.Dates
	if c.Index < 0 || c.Index >= len(dates) || dates[c.Index] == c.Date {
		return s, unchanged
	}
	dates = slices.Clone(dates)
	dates[c.Index] = c.Date
	s.Current.HolidayRate.Dates = dates
	return s, changedCurrent
}

// RemoveHolidayDate drops the date at Index. An index out of range is a no-op.
type RemoveHolidayDate struct{ Index int }

func (RemoveHolidayDate) Kind() string { return "removeHolidayDate" }

func (c RemoveHolidayDate) apply(s State, _ env) (State, effect) {
	dates := s.Current.HolidayRate.Dates
	if c.Index < 0 || c.Index >= len(dates) {
		return s, unchanged
	}
	s.Current.HolidayRate.Dates = slices.Delete(slices.Clone(dates), c.Index, c.Index+1)
	return s, changedCurrent
}

type TestimonialPatch struct {
	Text   *string
	Author *string
	Rating *int
}

// AddTestimonial appends a testimonial, assigning a fresh id when the given
// one is empty or taken.
type AddTestimonial struct{ Testimonial model.Testimonial }

func (AddTestimonial) Kind() string { return "addTestimonial" }

func (c AddTestimonial) apply(s State, e env) (State, effect) {
	t := c.Testimonial
	items := s.Current.OptionalSections.Testimonials.Items
	if t.ID == "" || testimonialIndex(items, t.ID) >= 0 {
		t.ID = e.newID()
	}
	next := make([]model.Testimonial, 0, len(items)+1)
	next = append(next, items...)
	s.Current.OptionalSections.Testimonials.Items = append(next, t)
	return s, changedCurrent
}

// UpdateTestimonial merges the patch into the testimonial with the given id.
// An unknown id is a no-op.
type UpdateTestimonial struct {
	ID    string
	Patch TestimonialPatch
}

func (UpdateTestimonial) Kind() string { return "updateTestimonial" }

func (c UpdateTestimonial) apply(s State, _ env) (State, effect) {
	items := s.Current.OptionalSections.Testimonials.Items
	i := testimonialIndex(items, c.ID)
	if i < 0 {
		return s, unchanged
	}
	t := items[i]
	t.Text = patch.Coalesce(c.Patch.Text, t.Text)
	t.Author = patch.Coalesce(c.Patch.Author, t.Author)
	t.Rating = patch.Coalesce(c.Patch.Rating, t.Rating)
	if t == items[i] {
		return s, unchanged
	}
	items = slices.Clone(items)
	items[i] = t
	s.Current.OptionalSections.Testimonials.Items = items
	return s, changedCurrent
}

// RemoveTestimonial drops the testimonial with the given id.
type RemoveTestimonial struct{ ID string }

func (RemoveTestimonial) Kind() string { return "removeTestimonial" }

func (c RemoveTestimonial) apply(s State, _ env) (State, effect) {
	items := s.Current.OptionalSections.Testimonials.Items
	i := testimonialIndex(items, c.ID)
	if i < 0 {
		return s, unchanged
	}
	s.Current.OptionalSections.Testimonials.Items = slices.Delete(slices.Clone(items), i, i+1)
	return s, changedCurrent
}

func testimonialIndex(items []model.Testimonial, id string) int {
	return slices.IndexFunc(items, func(t model.Testimonial) bool { return t.ID == id })
}
