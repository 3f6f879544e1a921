package handler

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/export"
	"github.com/sakif/servicecard/internal/service"
	"github.com/sakif/servicecard/internal/store"
)

// CardHandler serves the editor API: edits to the current card, the saved
// cards and PNG downloads.
type CardHandler struct {
	cards  *service.CardService
	logger *slog.Logger
}

func NewCardHandler(cards *service.CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

// edit decodes a required body of type T and hands it to apply.
func edit[T any](h *CardHandler, apply func(T) (store.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, h.logger, err)
			return
		}
		st, err := apply(in)
		writeState(w, h.logger, st, err)
	}
}

// === CURRENT CARD ===

// HandleGetCard returns the current card.
//
// HTTP: GET /api/card
func (h *CardHandler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(h.cards.State()))
}

// HandlePreview returns the visual tree of the current card.
//
// HTTP: GET /api/card/preview?mode=full|compact
func (h *CardHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	tree, err := h.cards.Preview(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// HTTP: PATCH /api/card/provider
func (h *CardHandler) HandleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.UpdateProviderInfo)(w, r)
}

// HandleAddService appends a service. The body is optional; without one
// the "new service" template is added.
//
// HTTP: POST /api/card/services
func (h *CardHandler) HandleAddService(w http.ResponseWriter, r *http.Request) {
	var in service.ServiceInput
	present, err := decodeOptionalJSON(w, r, &in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var input *service.ServiceInput
	if present {
		input = &in
	}
	st, err := h.cards.AddService(input)
	writeState(w, h.logger, st, err)
}

// HTTP: PATCH /api/card/services/{id}
func (h *CardHandler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	edit(h, func(in service.ServiceInput) (store.State, error) {
		return h.cards.UpdateService(id, in)
	})(w, r)
}

// HTTP: DELETE /api/card/services/{id}
func (h *CardHandler) HandleRemoveService(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.RemoveService(chi.URLParam(r, "id"))
	writeState(w, h.logger, st, err)
}

// HTTP: PATCH /api/card/holiday-rate
func (h *CardHandler) HandleUpdateHolidayRate(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.UpdateHolidayRate)(w, r)
}

// HTTP: POST /api/card/holiday-rate/dates
func (h *CardHandler) HandleAddHolidayDate(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.AddHolidayDate)(w, r)
}

// HTTP: PUT /api/card/holiday-rate/dates/{index}
func (h *CardHandler) HandleEditHolidayDate(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	edit(h, func(in service.HolidayDateInput) (store.State, error) {
		return h.cards.EditHolidayDate(index, in)
	})(w, r)
}

// HTTP: DELETE /api/card/holiday-rate/dates/{index}
func (h *CardHandler) HandleRemoveHolidayDate(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.cards.RemoveHolidayDate(index)
	writeState(w, h.logger, st, err)
}

func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, apperror.ValidationFailed("index", "index must be a number")
	}
	return index, nil
}

// HTTP: PATCH /api/card/sections/{section}
func (h *CardHandler) HandleUpdateSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	edit(h, func(in service.SectionInput) (store.State, error) {
		return h.cards.UpdateSection(section, in)
	})(w, r)
}

// HandleAddTestimonial appends a testimonial; without a body a blank
// five-star one is added.
//
// HTTP: POST /api/card/testimonials
func (h *CardHandler) HandleAddTestimonial(w http.ResponseWriter, r *http.Request) {
	var in service.TestimonialInput
	present, err := decodeOptionalJSON(w, r, &in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var input *service.TestimonialInput
	if present {
		input = &in
	}
	st, err := h.cards.AddTestimonial(input)
	writeState(w, h.logger, st, err)
}

// HTTP: PATCH /api/card/testimonials/{id}
func (h *CardHandler) HandleUpdateTestimonial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	edit(h, func(in service.TestimonialPatchInput) (store.State, error) {
		return h.cards.UpdateTestimonial(id, in)
	})(w, r)
}

// HTTP: DELETE /api/card/testimonials/{id}
func (h *CardHandler) HandleRemoveTestimonial(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.RemoveTestimonial(chi.URLParam(r, "id"))
	writeState(w, h.logger, st, err)
}

// HTTP: PUT /api/card/target-audience
func (h *CardHandler) HandleUpdateTargetAudience(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.UpdateTargetAudience)(w, r)
}

// HTTP: PUT /api/card/general-inclusions
func (h *CardHandler) HandleUpdateGeneralInclusions(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.UpdateGeneralInclusions)(w, r)
}

// HTTP: PATCH /api/card/design
func (h *CardHandler) HandleUpdateDesign(w http.ResponseWriter, r *http.Request) {
	edit(h, h.cards.UpdateDesign)(w, r)
}

// HTTP: POST /api/card/design/theme/{name}
func (h *CardHandler) HandleApplyTheme(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.ApplyTheme(chi.URLParam(r, "name"))
	writeState(w, h.logger, st, err)
}

// === LIFECYCLE ===

// HandleSave saves the current card. Saving a card without meaningful
// content answers 422.
//
// HTTP: POST /api/card/save
func (h *CardHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.Save(r.Context())
	writeState(w, h.logger, st, err)
}

// HTTP: POST /api/card/reset
func (h *CardHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	writeState(w, h.logger, h.cards.Reset(), nil)
}

// HTTP: POST /api/cards/{id}/load
func (h *CardHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.Load(chi.URLParam(r, "id"))
	writeState(w, h.logger, st, err)
}

// === SAVED CARDS ===

// HTTP: GET /api/cards
func (h *CardHandler) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cards.SavedCards())
}

// HTTP: GET /api/cards/{id}
func (h *CardHandler) HandleGetSaved(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.SavedCard(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HTTP: DELETE /api/cards/{id}
func (h *CardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.Delete(r.Context(), chi.URLParam(r, "id"))
	writeState(w, h.logger, st, err)
}

// HTTP: DELETE /api/cards
func (h *CardHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	st, err := h.cards.Clear(r.Context())
	writeState(w, h.logger, st, err)
}

// === IMAGES ===

// HandleCurrentImage downloads the PNG of the current card.
//
// HTTP: GET /api/card/image.png
func (h *CardHandler) HandleCurrentImage(w http.ResponseWriter, r *http.Request) {
	h.writeImage(w, r, "")
}

// HandleSavedImage downloads the PNG of a saved card.
//
// HTTP: GET /api/cards/{id}/image.png
func (h *CardHandler) HandleSavedImage(w http.ResponseWriter, r *http.Request) {
	h.writeImage(w, r, chi.URLParam(r, "id"))
}

func (h *CardHandler) writeImage(w http.ResponseWriter, r *http.Request, id string) {
	img, err := h.cards.Export(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writePNG(w, img, r.URL.Query().Has("download"))
}

// writePNG sends an exported image. With attachment set the browser saves it
// under the card's file name instead of displaying it.
func writePNG(w http.ResponseWriter, img *export.Image, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": img.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}
