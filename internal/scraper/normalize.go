package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// minPhoneDigits is the fewest significant digits a phone candidate may carry.
const minPhoneDigits = 7

var (
	// A phone-like run: optional "+" and "(", a digit, separators or digits,
	// ending on a digit. Newlines are not separators so numbers on adjacent
	// lines never merge.
	phoneRx      = regexp.MustCompile(`\+?\(?\d[\d\- \t()]{5,}\d`)
	nonDigitRx   = regexp.MustCompile(`\D`)
	coordinateRx = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
	digitRunRx   = regexp.MustCompile(`\d[\d,]*`)
)

// ExtractPhoneCandidates returns the distinct phone numbers found in text,
// in first-seen order, with internal whitespace collapsed.
//
// Two candidates are the same number when their digits are equal or differ
// only by a country code, so "+1 (310) 555-1212" and "310-555-1212" collapse
// to the first one seen while a 7-digit local line sharing a longer number's
// tail is kept.
func ExtractPhoneCandidates(text string) []string {
	var (
		out  []string
		sigs []string
	)
	for _, raw := range phoneRx.FindAllString(text, -1) {
		sig := PhoneSignature(raw)
		if len(sig) < minPhoneDigits {
			continue
		}
		if containsSignature(sigs, sig) {
			continue
		}
		sigs = append(sigs, sig)
		out = append(out, strings.Join(strings.Fields(raw), " "))
	}
	return out
}

// PhoneSignature is the digit-only form of a phone string.
func PhoneSignature(phone string) string {
	return nonDigitRx.ReplaceAllString(phone, "")
}

// DedupePhones drops phones whose signature was already seen, keeping order.
// Entries with no digits at all are dropped.
func DedupePhones(phones []string) []string {
	var (
		out  []string
		sigs []string
	)
	for _, p := range phones {
		sig := PhoneSignature(p)
		if sig == "" || containsSignature(sigs, sig) {
			continue
		}
		sigs = append(sigs, sig)
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// maxCountryCodeDigits bounds the prefix by which two signatures of the same
// number may differ.
const maxCountryCodeDigits = 3

func containsSignature(seen []string, sig string) bool {
	for _, s := range seen {
		if sameNumber(s, sig) {
			return true
		}
	}
	return false
}

// sameNumber reports whether a and b are equal, or differ only by a leading
// country code of up to maxCountryCodeDigits digits.
func sameNumber(a, b string) bool {
	if len(a) < len(b) {
		a, b = b, a
	}
	extra := len(a) - len(b)
	return extra <= maxCountryCodeDigits && strings.HasSuffix(a, b)
}

// Coordinates are decimal degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// ExtractCoordinates finds an "@<lat>,<lng>" segment in a surface URL.
// It reports false when the segment is missing, malformed or out of range.
func ExtractCoordinates(rawURL string) (Coordinates, bool) {
	m := coordinateRx.FindStringSubmatch(rawURL)
	if m == nil {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinates{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// ParseReviewCount returns the first digit run in text with commas removed.
func ParseReviewCount(text string) string {
	m := digitRunRx.FindString(text)
	return strings.ReplaceAll(m, ",", "")
}
