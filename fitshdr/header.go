/*Package fitshdr assembles the FITS header written with every frame.

Keys keep the order in which they were first set.  Setting a key again
replaces its value and comment in place, so a header never holds duplicates.
*/
package fitshdr

import (
	"strings"

	"github.com/astrogo/fitsio"
)

// Header is an ordered, duplicate-free set of FITS cards
type Header struct {
	cards []fitsio.Card
	index map[string]int
}

// New returns an empty header
func New() *Header {
	return &Header{index: map[string]int{}}
}

// Set adds the card name = value / comment, or replaces it if name is already present
func (h *Header) Set(name string, value interface{}, comment string) {
	if h.index == nil {
		h.index = map[string]int{}
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	c := fitsio.Card{Name: name, Value: value, Comment: comment}
	if i, ok := h.index[name]; ok {
		h.cards[i] = c
		return
	}
	h.index[name] = len(h.cards)
	h.cards = append(h.cards, c)
}

// SetString sets name only if value is not empty
func (h *Header) SetString(name, value, comment string) {
	if value == "" {
		return
	}
	h.Set(name, value, comment)
}

// Get returns the card called name
func (h *Header) Get(name string) (fitsio.Card, bool) {
	i, ok := h.index[strings.ToUpper(name)]
	if !ok {
		return fitsio.Card{}, false
	}
	return h.cards[i], true
}

// Has is true if name has been set
func (h *Header) Has(name string) bool {
	_, ok := h.index[strings.ToUpper(name)]
	return ok
}

// Len is the number of cards
func (h *Header) Len() int {
	return len(h.cards)
}

// Keys returns the card names in order
func (h *Header) Keys() []string {
	out := make([]string, len(h.cards))
	for i, c := range h.cards {
		out[i] = c.Name
	}
	return out
}

// Cards returns a copy of the cards in order
func (h *Header) Cards() []fitsio.Card {
	out := make([]fitsio.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Merge sets every card of o on h, in o's order
func (h *Header) Merge(o *Header) {
	if o == nil {
		return
	}
	for _, c := range o.cards {
		h.Set(c.Name, c.Value, c.Comment)
	}
}
