package catalog

import (
	"strings"

	"github.com/sakif/servicecard/internal/model"
)

// Theme is a named design preset.
type Theme struct {
	Name   string       `json:"name"`
	Design model.Design `json:"design"`
}

var themes = []Theme{
	{"Classic Teal", model.DefaultDesign()},
	{"Ocean Blue", model.Design{PrimaryColor: "#1E3A8A", SecondaryColor: "#F0F9FF", AccentColor: "#F59E0B"}},
	{"Forest Green", model.Design{PrimaryColor: "#166534", SecondaryColor: "#F0FDF4", AccentColor: "#DC2626"}},
	{"Sunset Orange", model.Design{PrimaryColor: "#EA580C", SecondaryColor: "#FEF7ED", AccentColor: "#7C3AED"}},
	{"Lavender", model.Design{PrimaryColor: "#7C3AED", SecondaryColor: "#FAF5FF", AccentColor: "#059669"}},
}

// Themes returns the design presets in display order.
func Themes() []Theme {
	return append([]Theme(nil), themes...)
}

// ThemeByName finds a preset by name, ignoring case, surrounding spaces and
// the difference between spaces and dashes ("ocean-blue" finds "Ocean Blue").
func ThemeByName(name string) (Theme, bool) {
	want := normalizeThemeName(name)
	for _, t := range themes {
		if normalizeThemeName(t.Name) == want {
			return t, true
		}
	}
	return Theme{}, false
}

func normalizeThemeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", " ")
}
