package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCardKeyCollapsesWhitespace(t *testing.T) {
	got := NewCardKey("  Joe's   Garage\n\t4.5 (120)\nAuto repair  ")
	want := CardKey("Joe's Garage 4.5 (120) Auto repair")
	if got != want {
		t.Fatalf("NewCardKey = %q, want %q", got, want)
	}
}

func TestNewCardKeyTruncatesPreview(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := NewCardKey(long); len(got) != CardKeyLength {
		t.Fatalf("len(NewCardKey) = %d, want %d", len(got), CardKeyLength)
	}
	// Same first 120 characters collide by construction.
	if NewCardKey(long+"x") != NewCardKey(long+"y") {
		t.Fatal("keys differing after the preview window must collide")
	}
}

func TestIdentityKeyUsesEmptyForMissingAddress(t *testing.T) {
	r := Record{Name: "Acme"}
	if got := r.IdentityKey(); got != "Acme|" {
		t.Fatalf("IdentityKey = %q", got)
	}
}

func TestCoordinateFormatting(t *testing.T) {
	lat, lng := 34.052235, -118.243683
	r := Record{Latitude: &lat, Longitude: &lng}
	if r.LatitudeString() != "34.052235" || r.LongitudeString() != "-118.243683" {
		t.Fatalf("got %s,%s", r.LatitudeString(), r.LongitudeString())
	}
	if (Record{}).LatitudeString() != "" {
		t.Fatal("absent latitude must format as empty string")
	}
}

func TestScrapeRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  ScrapeRequest
		ok   bool
	}{
		{"valid", ScrapeRequest{Region: "Los Angeles", Category: "car repair", MaxResults: 5}, true},
		{"zero target", ScrapeRequest{Region: "LA", Category: "cafe"}, true},
		{"blank region", ScrapeRequest{Region: " ", Category: "cafe"}, false},
		{"blank category", ScrapeRequest{Region: "LA"}, false},
		{"negative target", ScrapeRequest{Region: "LA", Category: "cafe", MaxResults: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("want ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestQueryJoinsRegionAndCategory(t *testing.T) {
	req := ScrapeRequest{Region: " 洛杉矶 ", Category: "修车店 "}
	if got := req.Query(); got != "洛杉矶 修车店" {
		t.Fatalf("Query = %q", got)
	}
}
