// Package handler contains the HTTP handlers of the card service.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business logic: validation, the empty-card gate and
// sharing rules live in the service layer.
package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/render"
	"github.com/sakif/servicecard/internal/service"
	"github.com/sakif/servicecard/internal/share"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names; each is parsed together with base.html.
const (
	pagePreview  = "preview"
	pageShare    = "share"
	pageNotFound = "notfound"
)

// PageHandler serves the HTML views: the preview of the current card and
// the public share pages.
//
// Templates are parsed once at startup and reused. Each page is its own
// template set because every page defines the "content" block that base.html
// pulls in.
type PageHandler struct {
	cards    *service.CardService
	share    *service.ShareService
	renderer *render.Renderer
	pages    map[string]*template.Template
	logger   *slog.Logger
}

// contactLink is a share.ContactAction whose href the template must not
// filter: tel: and sms: are not in html/template's safe scheme list.
type contactLink struct {
	Kind  string
	Label string
	Href  template.URL
}

// pageData is what every page template receives.
type pageData struct {
	Title       string
	Meta        []share.Tag
	Card        template.HTML
	Contact     []contactLink
	Social      share.Social
	DownloadURL string
}

func NewPageHandler(cards *service.CardService, shareSvc *service.ShareService, renderer *render.Renderer, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{pagePreview, pageShare, pageNotFound} {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s page: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &PageHandler{
		cards:    cards,
		share:    shareSvc,
		renderer: renderer,
		pages:    pages,
		logger:   logger,
	}, nil
}

// HandlePreview shows the current card as it will be exported.
//
// HTTP: GET /preview?mode=full|compact
func (h *PageHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	tree, err := h.cards.Preview(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	body, err := render.HTML(tree)
	if err != nil {
		h.renderFailed(w, err)
		return
	}
	h.render(w, http.StatusOK, pagePreview, pageData{
		Title:       "Preview - Dogge Card",
		Card:        body,
		DownloadURL: "/api/card/image.png?download=1",
	})
}

// HandleShareCurrent is the share page of the current card.
//
// HTTP: GET /share
func (h *PageHandler) HandleShareCurrent(w http.ResponseWriter, r *http.Request) {
	card, err := h.share.Resolve("")
	h.renderShare(w, r, card, err)
}

// HandleShare is the public page of a saved card.
//
// HTTP: GET /share/{id}
func (h *PageHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	card, err := h.share.Resolve(chi.URLParam(r, "id"))
	h.renderShare(w, r, card, err)
}

// HandleSignedShare is the page behind a signed, expiring link. Invalid and
// expired tokens show the not-found view.
//
// HTTP: GET /s/{token}
func (h *PageHandler) HandleSignedShare(w http.ResponseWriter, r *http.Request) {
	card, err := h.share.ResolveToken(chi.URLParam(r, "token"))
	h.renderShare(w, r, card, err)
}

func (h *PageHandler) renderShare(w http.ResponseWriter, r *http.Request, card model.Card, err error) {
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.render(w, http.StatusNotFound, pageNotFound, pageData{Title: "Card not found - Dogge Card"})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	body, err := render.HTML(h.renderer.Render(card, render.Full))
	if err != nil {
		h.renderFailed(w, err)
		return
	}

	meta := h.share.Meta(r.Context(), card)
	actions := share.ContactActions(card.ProviderInfo)
	contact := make([]contactLink, len(actions))
	for i, a := range actions {
		contact[i] = contactLink{Kind: a.Kind, Label: a.Label, Href: template.URL(a.Href)}
	}

	h.render(w, http.StatusOK, pageShare, pageData{
		Title:       meta.Title,
		Meta:        meta.Tags(),
		Card:        body,
		Contact:     contact,
		Social:      h.share.SocialURLs(card),
		DownloadURL: downloadURL(card.ID),
	})
}

func downloadURL(cardID string) string {
	if cardID == "" {
		return "/api/card/image.png?download=1"
	}
	return "/api/cards/" + url.PathEscape(cardID) + "/image.png?download=1"
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		// Headers are already sent; the page is cut short.
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

func (h *PageHandler) renderFailed(w http.ResponseWriter, err error) {
	h.logger.Error("failed to render card", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
