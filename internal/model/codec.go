package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

// The durable record is a bare JSON array of cards with no schema version,
// so decoding must tolerate records written before a field existed. Each card
// is decoded on top of a default card: absent fields keep their defaults.

// UnmarshalJSON decodes a card, filling absent fields from NewCard(0). Year
// stays 0 (unset) so renderers fall back to the current year.
func (c *Card) UnmarshalJSON(data []byte) error {
	type plain Card // no methods, so no recursion
	decoded := plain(NewCard(0))
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = Card(decoded)
	if c.Design.PrimaryColor == "" && c.Design.SecondaryColor == "" && c.Design.AccentColor == "" {
		c.Design = DefaultDesign()
	}
	return nil
}

// MarshalCards serializes the saved-cards collection for durable storage.
func MarshalCards(cards []Card) ([]byte, error) {
	if cards == nil {
		cards = []Card{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("model: encoding saved cards: %w", err)
	}
	return data, nil
}

// UnmarshalCards parses a durable saved-cards record. Entries without an id
// (nulls or hand-edited garbage) are skipped: a saved card always has one.
func UnmarshalCards(data []byte) ([]Card, error) {
	if len(data) == 0 {
		return []Card{}, nil
	}
	var decoded []Card
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("model: decoding saved cards: %w", err)
	}
	cards := make([]Card, 0, len(decoded))
	for _, c := range decoded {
		if c.ID == "" {
			continue
		}
		cards = append(cards, c)
	}
	return cards, nil
}
