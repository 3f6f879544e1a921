package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/render"
)

const (
	defaultShareText = "Check out this pet service card!"
	emailSubject     = "Pet Service Inquiry"
	titleFallback    = "Pet Services"
	titleSuffix      = " - Dogge Card"
	keywords         = "pet services, dog walking, pet sitting, pet care"
)

// Social holds ready-to-open share URLs per network.
type Social struct {
	WhatsApp string `json:"whatsapp"`
	Facebook string `json:"facebook"`
	Twitter  string `json:"twitter"`
}

// ContactAction is a one-tap way to reach the provider.
type ContactAction struct {
	Kind  string `json:"kind"` // phone, email or sms
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Meta is the social preview description of a shared card.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	URL         string `json:"url"`
	Type        string `json:"type"`
}

// Tag is one <meta> element. Exactly one of Property and Name is set.
type Tag struct {
	Property string
	Name     string
	Content  string
}

// Tags expands m into Open Graph, Twitter card and standard meta tags.
func (m Meta) Tags() []Tag {
	return []Tag{
		{Property: "og:title", Content: m.Title},
		{Property: "og:description", Content: m.Description},
		{Property: "og:image", Content: m.ImageURL},
		{Property: "og:url", Content: m.URL},
		{Property: "og:type", Content: m.Type},
		{Property: "twitter:card", Content: "summary_large_image"},
		{Property: "twitter:title", Content: m.Title},
		{Property: "twitter:description", Content: m.Description},
		{Property: "twitter:image", Content: m.ImageURL},
		{Name: "description", Content: m.Description},
		{Name: "keywords", Content: keywords},
	}
}

// Links is the bundle returned to an editor that wants to share a card.
type Links struct {
	URL       string          `json:"url"`
	SignedURL string          `json:"signedUrl,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	ImageURL  string          `json:"imageUrl"`
	Social    Social          `json:"social"`
	Contact   []ContactAction `json:"contact"`
	Meta      Meta            `json:"meta"`
}

// UseImage points the bundle at a published copy of the card image.
func (l *Links) UseImage(imageURL string) {
	l.ImageURL = imageURL
	l.Meta.ImageURL = imageURL
}

// Builder derives share links from the public base URL of the service.
type Builder struct {
	base   string
	tokens *TokenService
}

// NewBuilder creates a Builder. tokens may be nil, in which case no signed
// links are issued.
func NewBuilder(baseURL string, tokens *TokenService) (*Builder, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("share: parsing base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("share: base URL %q must be an absolute http(s) URL", baseURL)
	}
	return &Builder{base: strings.TrimRight(u.String(), "/"), tokens: tokens}, nil
}

// SigningEnabled reports whether signed links are issued.
func (b *Builder) SigningEnabled() bool {
	return b.tokens != nil
}

// ShareURL is the public page of a saved card, or of the current card when
// cardID is empty.
func (b *Builder) ShareURL(cardID string) string {
	if cardID == "" {
		return b.base + "/share"
	}
	return b.base + "/share/" + url.PathEscape(cardID)
}

// ImageURL is the PNG download of a saved card, or of the current card when
// cardID is empty.
func (b *Builder) ImageURL(cardID string) string {
	if cardID == "" {
		return b.base + "/api/card/image.png"
	}
	return b.base + "/api/cards/" + url.PathEscape(cardID) + "/image.png"
}

// SignedURL issues an expiring link to a saved card.
func (b *Builder) SignedURL(cardID string) (string, time.Time, error) {
	if b.tokens == nil {
		return "", time.Time{}, errors.New("share: signed links are disabled")
	}
	token, exp, err := b.tokens.Sign(cardID)
	if err != nil {
		return "", time.Time{}, err
	}
	return b.base + "/s/" + token, exp, nil
}

// Build assembles the share bundle for card. Unsaved cards (no id) link to
// the current-card page and never get a signed link.
func (b *Builder) Build(card model.Card) (Links, error) {
	shareURL := b.ShareURL(card.ID)
	links := Links{
		URL:      shareURL,
		ImageURL: b.ImageURL(card.ID),
		Social:   SocialURLs(shareURL, ShareText(card)),
		Contact:  ContactActions(card.ProviderInfo),
	}
	links.Meta = MetaFor(card, shareURL, links.ImageURL)

	if b.tokens != nil && card.ID != "" {
		signed, exp, err := b.SignedURL(card.ID)
		if err != nil {
			return Links{}, err
		}
		links.SignedURL = signed
		links.ExpiresAt = &exp
	}
	return links, nil
}

// ShareText is the message prefilled in social shares.
func ShareText(card model.Card) string {
	name := strings.TrimSpace(card.ProviderInfo.Name)
	if name == "" {
		return defaultShareText
	}
	return fmt.Sprintf("Check out %s's pet services!", name)
}

// SocialURLs builds the WhatsApp, Facebook and Twitter share URLs.
func SocialURLs(shareURL, text string) Social {
	if text == "" {
		text = defaultShareText
	}
	return Social{
		WhatsApp: "https://wa.me/?text=" + escape(text) + "%20" + escape(shareURL),
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + escape(shareURL),
		Twitter:  "https://twitter.com/intent/tweet?text=" + escape(text) + "&url=" + escape(shareURL),
	}
}

// ContactActions lists the ways to reach the provider. Actions whose contact
// detail is missing are left out.
func ContactActions(info model.ProviderInfo) []ContactAction {
	actions := []ContactAction{}
	phone := strings.TrimSpace(info.Phone)
	if phone != "" {
		actions = append(actions, ContactAction{Kind: "phone", Label: "Call", Href: "tel:" + phone})
	}
	if email := strings.TrimSpace(info.Email); email != "" {
		actions = append(actions, ContactAction{
			Kind:  "email",
			Label: "Email",
			Href:  "mailto:" + email + "?subject=" + escape(emailSubject),
		})
	}
	if phone != "" {
		actions = append(actions, ContactAction{Kind: "sms", Label: "Text", Href: "sms:" + phone})
	}
	return actions
}

// MetaFor describes card for social previews.
func MetaFor(card model.Card, shareURL, imageURL string) Meta {
	name := strings.TrimSpace(card.ProviderInfo.Name)
	if name == "" {
		name = titleFallback
	}
	parts := make([]string, 0, len(card.Services))
	for _, s := range card.Services {
		parts = append(parts, s.Name+": "+render.FormatPrice(s.BasePrice))
	}
	return Meta{
		Title:       name + titleSuffix,
		Description: strings.Join(parts, ", "),
		ImageURL:    imageURL,
		URL:         shareURL,
		Type:        "website",
	}
}

// Resolve picks the card a share page shows: the saved card with id, or the
// current card when id is empty. A card without a provider name is not
// shareable and resolves to NotFound, as does an unknown id.
func Resolve(current model.Card, saved []model.Card, id string) (model.Card, error) {
	card := current
	if id != "" {
		found := false
		for _, c := range saved {
			if c.ID == id {
				card, found = c, true
				break
			}
		}
		if !found {
			return model.Card{}, apperror.NotFound("card", id)
		}
	}
	if strings.TrimSpace(card.ProviderInfo.Name) == "" {
		return model.Card{}, apperror.NotFound("card", id)
	}
	return card, nil
}

// escape matches JavaScript's encodeURIComponent closely enough for share
// URLs: spaces become %20 rather than '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
