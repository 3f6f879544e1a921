// Package render turns a Card into a visual tree: an ordered list of
// regions, each a column of styled items. The same tree feeds the on-screen
// HTML preview and the PNG exporter, so both show the same card.
package render

import (
	"fmt"
	"strings"
)

// Mode selects one of the two presentation variants.
type Mode string

const (
	// Compact is the thumbnail variant: at most two service rows, no
	// holiday band, no optional sections, scaled down.
	Compact Mode = "compact"
	// Full is the preview, export and share variant.
	Full Mode = "full"
)

// ParseMode reads a mode from a query string. The empty string means Full.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Full:
		return Full, nil
	case Compact:
		return Compact, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

type RegionKind string

const (
	RegionHeader       RegionKind = "header"
	RegionServices     RegionKind = "services"
	RegionHoliday      RegionKind = "holiday"
	RegionFooter       RegionKind = "footer"
	RegionAbout        RegionKind = "about"
	RegionTestimonials RegionKind = "testimonials"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
)

type ItemKind string

const (
	ItemHeading    ItemKind = "heading"
	ItemText       ItemKind = "text"
	ItemServiceRow ItemKind = "serviceRow" // icon, name, trailing price
	ItemPill       ItemKind = "pill"       // text on a rounded colored background
	ItemRating     ItemKind = "rating"     // stars followed by Text
)

// Style is the typography of one item. Sizes are CSS pixels at scale 1.
type Style struct {
	Size    float64 `json:"size"`
	Bold    bool    `json:"bold,omitempty"`
	Italic  bool    `json:"italic,omitempty"`
	Color   string  `json:"color,omitempty"`   // empty inherits the region color
	Opacity float64 `json:"opacity,omitempty"` // 0 means fully opaque
}

// Item is one line (or wrapped paragraph) inside a region.
type Item struct {
	Kind       ItemKind `json:"kind"`
	Text       string   `json:"text,omitempty"`
	Style      Style    `json:"style"`
	SpaceAfter float64  `json:"spaceAfter,omitempty"`

	// Service rows.
	ServiceID     string  `json:"serviceId,omitempty"`
	Icon          string  `json:"icon,omitempty"`
	IconSize      float64 `json:"iconSize,omitempty"`
	Trailing      string  `json:"trailing,omitempty"`
	TrailingStyle *Style  `json:"trailingStyle,omitempty"`

	// Pills.
	Background string `json:"background,omitempty"`

	// Ratings: number of stars, 0 to 5.
	Rating int `json:"rating,omitempty"`
}

type Padding struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

// Region is a full-width horizontal band of the card.
type Region struct {
	Kind       RegionKind `json:"kind"`
	Background string     `json:"background,omitempty"` // empty shows the card background
	Color      string     `json:"color"`
	Align      Align      `json:"align"`
	Padding    Padding    `json:"padding"`
	BorderTop  string     `json:"borderTop,omitempty"` // color of a 1px top rule
	Items      []Item     `json:"items"`
}

// Tree is the renderer output. The zero Tree is the empty result returned
// for a card without meaningful content.
type Tree struct {
	Mode       Mode     `json:"mode,omitempty"`
	Scale      float64  `json:"scale,omitempty"`
	MaxWidth   float64  `json:"maxWidth,omitempty"`
	Background string   `json:"background,omitempty"`
	Color      string   `json:"color,omitempty"`
	Regions    []Region `json:"regions"`
}

// Empty reports whether there is nothing to draw.
func (t Tree) Empty() bool {
	return len(t.Regions) == 0
}

// Region returns the first region of the given kind.
func (t Tree) Region(kind RegionKind) (Region, bool) {
	for _, r := range t.Regions {
		if r.Kind == kind {
			return r, true
		}
	}
	return Region{}, false
}

// Texts returns every text carried by the tree, in drawing order. Service
// rows contribute their name and price.
func (t Tree) Texts() []string {
	var out []string
	for _, r := range t.Regions {
		for _, it := range r.Items {
			if it.Text != "" {
				out = append(out, it.Text)
			}
			if it.Trailing != "" {
				out = append(out, it.Trailing)
			}
		}
	}
	return out
}
