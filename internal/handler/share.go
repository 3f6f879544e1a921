package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/servicecard/internal/service"
)

// ShareHandler serves share links and image publishing.
type ShareHandler struct {
	share  *service.ShareService
	logger *slog.Logger
}

func NewShareHandler(share *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{share: share, logger: logger}
}

// PublicationResponse tells the editor where a published image lives.
type PublicationResponse struct {
	CardID      string    `json:"cardId"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// HandleCurrentLinks returns the share bundle of the current card.
//
// HTTP: GET /api/card/share
func (h *ShareHandler) HandleCurrentLinks(w http.ResponseWriter, r *http.Request) {
	h.writeLinks(w, r, "")
}

// HandleLinks returns the share bundle of a saved card: public URL, signed
// URL, social share URLs, contact actions and preview meta.
//
// HTTP: GET /api/cards/{id}/share
func (h *ShareHandler) HandleLinks(w http.ResponseWriter, r *http.Request) {
	h.writeLinks(w, r, chi.URLParam(r, "id"))
}

func (h *ShareHandler) writeLinks(w http.ResponseWriter, r *http.Request, id string) {
	links, err := h.share.Links(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// HandlePublish uploads the card's PNG to object storage. Answers 503 when
// no object store is configured.
//
// HTTP: POST /api/cards/{id}/publish
func (h *ShareHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	pub, err := h.share.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, PublicationResponse{
		CardID:      pub.CardID,
		URL:         pub.URL,
		PublishedAt: pub.PublishedAt,
	})
}

// HTTP: DELETE /api/cards/{id}/publish
func (h *ShareHandler) HandleUnpublish(w http.ResponseWriter, r *http.Request) {
	if err := h.share.Unpublish(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
