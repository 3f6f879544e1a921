package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fullCard returns a card with every field and every optional section populated.
func fullCard() Card {
	savedAt := time.Date(2026, time.May, 4, 10, 30, 0, 0, time.UTC)
	return Card{
		ID: "card-1",
		ProviderInfo: ProviderInfo{
			Name:      "Jane",
			Phone:     "555-0100",
			Email:     "jane@example.com",
			Address:   "1 Main St",
			Apartment: "4B",
			Year:      2026,
		},
		Services: []Service{
			{
				ID: "s1", Name: "Walk", Icon: "🚶", Description: "30 minute walk",
				BasePrice: 20, AdditionalPetPrice: 5,
				IncludedFeature: "Treats included", SpecificTerms: "Leash required",
			},
			{ID: "s2", Name: "Boarding", Icon: "🏠", BasePrice: 45},
		},
		HolidayRate: HolidayRate{
			Enabled:          true,
			AdditionalCharge: 10,
			Dates:            []string{"Dec 24 - Dec 26", "Dec 31 - Jan 1"},
		},
		TargetAudience:    "Residents of Building 4 only",
		GeneralInclusions: "Fresh water and playtime",
		OptionalSections: OptionalSections{
			Testimonials: TestimonialsSection{
				Enabled: true,
				Items:   []Testimonial{{ID: "t1", Text: "Great!", Author: "Sam", Rating: 5}},
			},
			About:  AboutSection{Enabled: true, Content: "Ten years with dogs."},
			Images: ImagesSection{Enabled: true, Items: []ImageItem{{ID: "i1", URL: "https://example.com/a.png", Caption: "Rex"}}},
			Availability: AvailabilitySection{
				Enabled:  true,
				Schedule: map[string]Availability{"Monday": Available, "Sunday": Unavailable},
			},
		},
		Design:  Design{PrimaryColor: "#1E3A8A", SecondaryColor: "#F0F9FF", AccentColor: "#F59E0B"},
		SavedAt: &savedAt,
	}
}

func TestHasMeaningfulContent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Card)
		want   bool
	}{
		{name: "empty card", mutate: func(c *Card) {}, want: false},
		{name: "whitespace name only", mutate: func(c *Card) { c.ProviderInfo.Name = "   " }, want: false},
		{name: "provider name", mutate: func(c *Card) { c.ProviderInfo.Name = "Jane" }, want: true},
		{name: "one service", mutate: func(c *Card) { c.Services = []Service{{ID: "x"}} }, want: true},
		{name: "target audience", mutate: func(c *Card) { c.TargetAudience = "Neighbours" }, want: true},
		{name: "general inclusions", mutate: func(c *Card) { c.GeneralInclusions = "Walks" }, want: true},
		{name: "design alone is not content", mutate: func(c *Card) { c.Design.PrimaryColor = "#000000" }, want: false},
		{
			name:   "enabled about section alone is not content",
			mutate: func(c *Card) { c.OptionalSections.About = AboutSection{Enabled: true, Content: "hi"} },
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCard(2026)
			tt.mutate(&c)
			if got := c.HasMeaningfulContent(); got != tt.want {
				t.Errorf("HasMeaningfulContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCard_Defaults(t *testing.T) {
	c := NewCard(2027)

	if c.ID != "" {
		t.Errorf("ID = %q, want empty for an unsaved card", c.ID)
	}
	if c.ProviderInfo.Year != 2027 {
		t.Errorf("Year = %d, want 2027", c.ProviderInfo.Year)
	}
	if c.Design != DefaultDesign() {
		t.Errorf("Design = %+v, want %+v", c.Design, DefaultDesign())
	}
	if c.SavedAt != nil {
		t.Error("SavedAt should be nil until the card is persisted")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	original := fullCard()
	clone := original.Clone()

	if diff := cmp.Diff(original, clone); diff != "" {
		t.Fatalf("Clone() differs from source (-want +got):\n%s", diff)
	}

	clone.Services[0].Name = "changed"
	clone.HolidayRate.Dates[0] = "changed"
	clone.OptionalSections.Testimonials.Items[0].Author = "changed"
	clone.OptionalSections.Availability.Schedule["Monday"] = Limited
	*clone.SavedAt = clone.SavedAt.Add(time.Hour)

	if diff := cmp.Diff(fullCard(), original); diff != "" {
		t.Errorf("mutating the clone changed the source (-want +got):\n%s", diff)
	}
}

func TestServiceIndex(t *testing.T) {
	c := fullCard()
	if got := c.ServiceIndex("s2"); got != 1 {
		t.Errorf("ServiceIndex(s2) = %d, want 1", got)
	}
	if got := c.ServiceIndex("missing"); got != -1 {
		t.Errorf("ServiceIndex(missing) = %d, want -1", got)
	}
}

func TestNewID_UniqueUnderRapidCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %q after %d calls", id, i)
		}
		seen[id] = true
	}
}

func TestAvailabilityStatusFor(t *testing.T) {
	a := AvailabilitySection{Schedule: map[string]Availability{"Friday": Limited}}

	if got := a.StatusFor("Friday"); got != Limited {
		t.Errorf("StatusFor(Friday) = %q, want %q", got, Limited)
	}
	if got := a.StatusFor("Monday"); got != Available {
		t.Errorf("StatusFor(Monday) = %q, want default %q", got, Available)
	}
}

func TestParseSectionKey(t *testing.T) {
	if k, err := ParseSectionKey(" About "); err != nil || k != SectionAbout {
		t.Errorf("ParseSectionKey(About) = %q, %v", k, err)
	}
	if _, err := ParseSectionKey("gallery"); err == nil {
		t.Error("ParseSectionKey(gallery) should fail")
	}
}
