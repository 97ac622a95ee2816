package entity

import (
	"strconv"
	"strings"
)

// Record is one business listing extracted from a detail view.
// Only Name is required for a record to be accepted; every other field may be empty.
type Record struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	Category     string   `json:"category"`
	Rating       string   `json:"rating"`
	ReviewsCount string   `json:"reviews_count"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	SourceURL    string   `json:"gmaps_url"`
}

// IdentityKey is the final dedup token: name + "|" + address.
func (r Record) IdentityKey() string {
	return r.Name + "|" + r.Address
}

// HasPhone reports whether at least one phone number was resolved.
func (r Record) HasPhone() bool {
	return strings.TrimSpace(r.Phone) != ""
}

// LatitudeString formats the latitude with 6 decimals, or "" when absent.
func (r Record) LatitudeString() string {
	return formatCoordinate(r.Latitude)
}

// LongitudeString formats the longitude with 6 decimals, or "" when absent.
func (r Record) LongitudeString() string {
	return formatCoordinate(r.Longitude)
}

func formatCoordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

// CardKeyLength bounds the preview text a CardKey is derived from.
const CardKeyLength = 120

// CardKey is a dedup token for result cards within a single run.
// Near-identical short previews may collide; IdentityKey catches what slips through.
type CardKey string

// NewCardKey derives a CardKey from the first CardKeyLength characters of a
// card's visible text with runs of whitespace collapsed to a single space.
func NewCardKey(text string) CardKey {
	runes := []rune(text)
	if len(runes) > CardKeyLength {
		runes = runes[:CardKeyLength]
	}
	return CardKey(strings.Join(strings.Fields(string(runes)), " "))
}
