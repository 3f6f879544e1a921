// Package catalog holds the read-only data the editor offers for picking:
// the icon catalogue and the design presets.
package catalog

import "strings"

// IconCategory groups the glyphs offered by the icon picker.
type IconCategory struct {
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Icons []string `json:"icons"`
}

var iconCategories = []IconCategory{
	{
		Key:  "pets",
		Name: "Pets & Animals",
		Icons: []string{
			"🐕", "🐕‍🦺", "🦮", "🐩", "🐱", "🐈", "🐈‍⬛", "🐰", "🐹", "🐭",
			"🦜", "🦎", "🐠", "🐟", "🐢", "🐍",
		},
	},
	{
		Key:  "activities",
		Name: "Activities & Play",
		Icons: []string{
			"🎾", "🦴", "🧸", "🏃", "🚶", "🏃‍♀️", "🚶‍♀️", "🎯", "🎪", "🎨",
			"🎭", "🏆", "🥇", "🥈", "🥉", "🏅", "🎖️",
		},
	},
	{
		Key:  "care",
		Name: "Care & Health",
		Icons: []string{
			"💊", "🏥", "🩺", "💉", "🩹", "🩻", "🦷", "👨‍⚕️", "👩‍⚕️", "🦴",
			"🫀", "🫁", "🧠", "🦿", "🦾", "👁️", "👂", "👃", "👄",
		},
	},
	{
		Key:  "grooming",
		Name: "Grooming & Beauty",
		Icons: []string{
			"✂️", "🪒", "🧴", "🛁", "🚿", "🧼", "🪮", "💇", "💇‍♀️", "💅",
			"💄", "🎀", "🦋", "🌸", "🌺", "🌷", "🌹", "🌻", "🌼", "🌿",
		},
	},
	{
		Key:  "home",
		Name: "Home & Environment",
		Icons: []string{
			"🏠", "🏡", "🏘️", "🏚️", "🏗️", "🏭", "🏢", "🏬", "🏣", "🏤",
			"🏥", "🏨", "🏪", "🏫", "🏩", "💒", "⛪", "🕌", "🛕", "🕍",
		},
	},
	{
		Key:  "nature",
		Name: "Nature & Outdoors",
		Icons: []string{
			"🌳", "🌲", "🌴", "🌵", "🌾", "🌿", "☘️", "🍀", "🎍", "🎋",
			"🍃", "🍂", "🍁", "🌺", "🌸", "🌼", "🌻", "🌞", "🌝", "🌛",
		},
	},
	{
		Key:  "food",
		Name: "Food & Nutrition",
		Icons: []string{
			"🍽️", "🍴", "🥄", "🥣", "🥡", "🥢", "🍱", "🍘", "🍙", "🍚",
			"🍛", "🍜", "🍝", "🍞", "🥖", "🥨", "🥯", "🥞", "🧇",
		},
	},
	{
		Key:  "time",
		Name: "Time & Schedule",
		Icons: []string{
			"⏰", "🕐", "🕑", "🕒", "🕓", "🕔", "🕕", "🕖", "🕗", "🕘",
			"🕙", "🕚", "🕛", "🕜", "🕝", "🕞", "🕟", "🕠", "🕡", "🕢",
		},
	},
	{
		Key:  "weather",
		Name: "Weather & Seasons",
		Icons: []string{
			"☀️", "🌤️", "⛅", "🌥️", "☁️", "🌦️", "🌧️", "⛈️", "🌩️", "🌨️",
			"🌪️", "🌫️", "🌈", "☔", "🌂", "🌡️", "🔥", "❄️", "💧", "💦",
		},
	},
}

// PopularIcons are offered for quick access and as the fallback suggestion.
var PopularIcons = []string{"🐕", "🐱", "🏠", "🎾", "🛁", "✂️", "💊", "🍽️", "⏰", "☀️"}

// suggestion maps keywords in a service name to icons.
type suggestion struct {
	keywords []string
	icons    []string
}

var suggestions = []suggestion{
	{[]string{"board", "stay", "home"}, []string{"🏠", "🏡", "🏘️", "🌙", "🛏️"}},
	{[]string{"walk", "exercise"}, []string{"🚶", "🏃", "🎾", "🦴", "🌳"}},
	{[]string{"groom", "bath"}, []string{"✂️", "🛁", "🚿", "🧴", "💇"}},
	{[]string{"feed", "food"}, []string{"🍽️", "🍴", "🥄", "🍱", "🍖"}},
	{[]string{"vet", "health", "care"}, []string{"💊", "🏥", "🩺", "💉", "🩹"}},
	{[]string{"train", "behavior"}, []string{"🎯", "🏆", "🎪", "🎨", "📚"}},
}

// IconCategories returns the icon catalogue in display order.
func IconCategories() []IconCategory {
	out := make([]IconCategory, len(iconCategories))
	for i, c := range iconCategories {
		c.Icons = append([]string(nil), c.Icons...)
		out[i] = c
	}
	return out
}

// FilterIcons lists the icons of category ("" or "all" for every category)
// whose category name contains search, case-insensitively. An icon listed
// in several categories appears once per category.
func FilterIcons(search, category string) []string {
	search = strings.ToLower(strings.TrimSpace(search))
	all := category == "" || category == "all"

	icons := []string{}
	for _, c := range iconCategories {
		if !all && c.Key != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		icons = append(icons, c.Icons...)
	}
	return icons
}

// SuggestedIcons proposes icons that fit a service name.
func SuggestedIcons(serviceName string) []string {
	name := strings.ToLower(serviceName)
	for _, s := range suggestions {
		for _, k := range s.keywords {
			if strings.Contains(name, k) {
				return append([]string(nil), s.icons...)
			}
		}
	}
	return append([]string(nil), PopularIcons...)
}
