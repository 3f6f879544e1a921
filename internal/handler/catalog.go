package handler

import (
	"net/http"

	"github.com/sakif/servicecard/internal/catalog"
)

// IconsResponse feeds the icon picker.
type IconsResponse struct {
	Categories []catalog.IconCategory `json:"categories"`
	Popular    []string               `json:"popular"`
	Icons      []string               `json:"icons"`               // icons matching search/category
	Suggested  []string               `json:"suggested,omitempty"` // for ?suggest=<service name>
}

// HandleIcons lists the icon catalogue, filtered by ?search= and ?category=.
//
// HTTP: GET /api/icons
func HandleIcons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := IconsResponse{
		Categories: catalog.IconCategories(),
		Popular:    catalog.PopularIcons,
		Icons:      catalog.FilterIcons(q.Get("search"), q.Get("category")),
	}
	if name := q.Get("suggest"); name != "" {
		resp.Suggested = catalog.SuggestedIcons(name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleThemes lists the design presets.
//
// HTTP: GET /api/themes
func HandleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Themes())
}
