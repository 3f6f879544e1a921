package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/model"
)

const (
	// CardTitle heads every card.
	CardTitle = "PET SITTING SERVICES"

	// CompactServiceLimit is the number of service rows a compact card shows.
	CompactServiceLimit = 2

	compactScale    = 0.75
	compactMaxWidth = 280
	fullMaxWidth    = 450

	textColor    = "#333333"
	mutedColor   = "#666666"
	onBrandColor = "#FFFFFF"
	ruleColor    = "#EEEEEE"
)

// Renderer builds visual trees. It is a pure function of the card except
// for the year shown when ProviderInfo.Year is unset, which comes from clk.
type Renderer struct {
	clk clock.Clock
}

func New(clk clock.Clock) *Renderer {
	return &Renderer{clk: clk}
}

// Render returns the visual tree of card in the given mode, or the empty
// Tree when the card has no meaningful content.
func (r *Renderer) Render(card model.Card, mode Mode) Tree {
	if !card.HasMeaningfulContent() {
		return Tree{}
	}
	if mode != Compact {
		mode = Full
	}

	b := builder{card: card, mode: mode, year: r.year(card)}

	t := Tree{
		Mode:       mode,
		Scale:      1,
		MaxWidth:   fullMaxWidth,
		Background: card.Design.SecondaryColor,
		Color:      textColor,
	}
	if mode == Compact {
		t.Scale = compactScale
		t.MaxWidth = compactMaxWidth
	}

	t.Regions = append(t.Regions, b.header())
	if reg, ok := b.services(); ok {
		t.Regions = append(t.Regions, reg)
	}
	if reg, ok := b.holiday(); ok {
		t.Regions = append(t.Regions, reg)
	}
	if reg, ok := b.footer(); ok {
		t.Regions = append(t.Regions, reg)
	}
	if reg, ok := b.about(); ok {
		t.Regions = append(t.Regions, reg)
	}
	if reg, ok := b.testimonials(); ok {
		t.Regions = append(t.Regions, reg)
	}
	return t
}

func (r *Renderer) year(card model.Card) int {
	if card.ProviderInfo.Year != 0 {
		return card.ProviderInfo.Year
	}
	return clock.Year(r.clk)
}

// FormatPrice renders a whole-dollar amount the way cards show it: "$20".
func FormatPrice(amount int) string {
	return "$" + strconv.Itoa(amount)
}

// ProviderLine is the header line under the year: "Jane (555-0100) - 4B".
// It is empty when the card has no provider name.
func ProviderLine(info model.ProviderInfo) string {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return ""
	}
	line := name
	if phone := strings.TrimSpace(info.Phone); phone != "" {
		line += " (" + phone + ")"
	}
	if apt := strings.TrimSpace(info.Apartment); apt != "" {
		line += " - " + apt
	}
	return line
}

type builder struct {
	card model.Card
	mode Mode
	year int
}

func (b builder) full() bool { return b.mode == Full }

// pick returns the full-mode value or the compact one.
func (b builder) pick(full, compact float64) float64 {
	if b.full() {
		return full
	}
	return compact
}

func (b builder) padding() Padding {
	p := b.pick(20, 16)
	return Padding{Vertical: p, Horizontal: p}
}

func (b builder) header() Region {
	d := b.card.Design
	items := []Item{
		{Kind: ItemHeading, Text: CardTitle, Style: Style{Size: b.pick(24, 16), Bold: true}, SpaceAfter: 5},
		{Kind: ItemText, Text: strconv.Itoa(b.year), Style: Style{Size: b.pick(18, 14), Opacity: 0.9}},
	}
	if line := ProviderLine(b.card.ProviderInfo); line != "" {
		items[len(items)-1].SpaceAfter = 10
		items = append(items, Item{Kind: ItemText, Text: line, Style: Style{Size: 14}})
	}
	return Region{
		Kind:       RegionHeader,
		Background: d.PrimaryColor,
		Color:      onBrandColor,
		Align:      AlignCenter,
		Padding:    b.padding(),
		Items:      items,
	}
}

func (b builder) services() (Region, bool) {
	services := b.card.Services
	if len(services) == 0 {
		return Region{}, false
	}
	accent := b.card.Design.AccentColor

	shown := services
	if !b.full() && len(shown) > CompactServiceLimit {
		shown = shown[:CompactServiceLimit]
	}

	var items []Item
	for _, svc := range shown {
		row := Item{
			Kind:          ItemServiceRow,
			ServiceID:     svc.ID,
			Icon:          svc.Icon,
			IconSize:      20,
			Text:          svc.Name,
			Style:         Style{Size: b.pick(18, 16), Bold: true},
			Trailing:      FormatPrice(svc.BasePrice),
			TrailingStyle: &Style{Size: 20, Bold: true, Color: accent},
			SpaceAfter:    10,
		}
		items = append(items, row)

		if !b.full() {
			items[len(items)-1].SpaceAfter = 16
			continue
		}
		if f := strings.TrimSpace(svc.IncludedFeature); f != "" {
			items = append(items, Item{Kind: ItemText, Text: f, Style: Style{Size: 12, Bold: true, Color: accent}, SpaceAfter: 5})
		}
		if desc := strings.TrimSpace(svc.Description); desc != "" {
			items = append(items, Item{Kind: ItemText, Text: desc, Style: Style{Size: 14}, SpaceAfter: 5})
		}
		if terms := strings.TrimSpace(svc.SpecificTerms); terms != "" {
			items = append(items, Item{Kind: ItemText, Text: terms, Style: Style{Size: 12, Italic: true, Color: mutedColor}, SpaceAfter: 5})
		}
		if svc.AdditionalPetPrice > 0 {
			items = append(items, Item{
				Kind:       ItemText,
				Text:       fmt.Sprintf("ADDITIONAL PET (%s) %s", svc.Name, FormatPrice(svc.AdditionalPetPrice)),
				Style:      Style{Size: 12, Color: mutedColor},
				SpaceAfter: 5,
			})
		}
		items[len(items)-1].SpaceAfter = 20
	}

	if hidden := len(services) - len(shown); hidden > 0 {
		items = append(items, Item{
			Kind:  ItemText,
			Text:  fmt.Sprintf("+%d more services", hidden),
			Style: Style{Size: 12, Color: mutedColor},
		})
	}
	items[len(items)-1].SpaceAfter = 0

	return Region{
		Kind:    RegionServices,
		Color:   textColor,
		Align:   AlignLeft,
		Padding: b.padding(),
		Items:   items,
	}, true
}

func (b builder) holiday() (Region, bool) {
	hr := b.card.HolidayRate
	if !b.full() || !hr.Enabled || len(hr.Dates) == 0 {
		return Region{}, false
	}

	items := []Item{
		{Kind: ItemHeading, Text: "HOLIDAY RATE", Style: Style{Size: 16, Bold: true}, SpaceAfter: 10},
		{Kind: ItemText, Text: "Additional charge for holidays: +" + FormatPrice(hr.AdditionalCharge), Style: Style{Size: 14}, SpaceAfter: 10},
	}
	for _, date := range hr.Dates {
		items = append(items, Item{Kind: ItemText, Text: date, Style: Style{Size: 12, Opacity: 0.9}, SpaceAfter: 2})
	}
	items[len(items)-1].SpaceAfter = 0

	return Region{
		Kind:       RegionHoliday,
		Background: b.card.Design.PrimaryColor,
		Color:      onBrandColor,
		Align:      AlignLeft,
		Padding:    Padding{Vertical: 15, Horizontal: 20},
		Items:      items,
	}, true
}

func (b builder) footer() (Region, bool) {
	audience := strings.TrimSpace(b.card.TargetAudience)
	inclusions := strings.TrimSpace(b.card.GeneralInclusions)
	if audience == "" && inclusions == "" {
		return Region{}, false
	}

	var items []Item
	if audience != "" {
		items = append(items, Item{
			Kind:       ItemPill,
			Text:       audience,
			Style:      Style{Size: 12, Bold: true, Color: onBrandColor},
			Background: b.card.Design.AccentColor,
			SpaceAfter: 10,
		})
	}
	if inclusions != "" {
		items = append(items, Item{Kind: ItemText, Text: inclusions, Style: Style{Size: 12, Opacity: 0.9}})
	}
	items[len(items)-1].SpaceAfter = 0

	return Region{
		Kind:       RegionFooter,
		Background: b.card.Design.PrimaryColor,
		Color:      onBrandColor,
		Align:      AlignCenter,
		Padding:    b.padding(),
		Items:      items,
	}, true
}

func (b builder) about() (Region, bool) {
	about := b.card.OptionalSections.About
	content := strings.TrimSpace(about.Content)
	if !b.full() || !about.Enabled || content == "" {
		return Region{}, false
	}
	return Region{
		Kind:      RegionAbout,
		Color:     textColor,
		Align:     AlignLeft,
		Padding:   b.padding(),
		BorderTop: ruleColor,
		Items: []Item{
			{Kind: ItemHeading, Text: "About Me", Style: Style{Size: 16, Bold: true}, SpaceAfter: 10},
			{Kind: ItemText, Text: content, Style: Style{Size: 14}},
		},
	}, true
}

func (b builder) testimonials() (Region, bool) {
	sec := b.card.OptionalSections.Testimonials
	if !b.full() || !sec.Enabled || len(sec.Items) == 0 {
		return Region{}, false
	}

	items := []Item{
		{Kind: ItemHeading, Text: "What Clients Say", Style: Style{Size: 16, Bold: true}, SpaceAfter: 15},
	}
	for _, t := range sec.Items {
		items = append(items,
			Item{Kind: ItemRating, Rating: min(max(t.Rating, 0), 5), Text: t.Author, Style: Style{Size: 12, Bold: true}, SpaceAfter: 5},
			Item{Kind: ItemText, Text: `"` + t.Text + `"`, Style: Style{Size: 14, Italic: true}, SpaceAfter: 15},
		)
	}
	items[len(items)-1].SpaceAfter = 0

	return Region{
		Kind:      RegionTestimonials,
		Color:     textColor,
		Align:     AlignLeft,
		Padding:   b.padding(),
		BorderTop: ruleColor,
		Items:     items,
	}, true
}
