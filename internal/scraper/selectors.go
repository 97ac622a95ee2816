package scraper

import (
	"time"

	"github.com/user/spidermap/internal/repository"
)

// Selectors used across the scraper. The host markup changes often; every
// list is ordered by preference and tried until one entry resolves.

const defaultSurfaceURL = "https://www.google.com/maps"

// consentLabels covers the approval buttons seen across locales.
var consentLabels = []string{
	"I agree",
	"I Agree",
	"Accept all",
	"Accept All",
	"Alles akzeptieren",
	"Tout accepter",
	"Aceptar todo",
	"同意",
	"同意并继续",
	"接受全部",
}

// frameConsentLabels are tried inside embedded frames.
var frameConsentLabels = []string{
	"I agree",
	"Accept all",
	"同意",
}

var searchInputs = []repository.Locator{
	repository.CSS(`input#searchboxinput`),
	repository.CSS(`input[aria-label='Search Google Maps']`),
	repository.CSS(`input[aria-label='在 Google 地图中搜索']`),
	repository.CSS(`input[name='q']`),
}

var resultIndicators = []repository.Locator{
	repository.CSS(`div[role='feed']`),
	repository.CSS(`div[aria-label$='results']`),
	repository.CSS(`div[aria-label$='结果']`),
	repository.CSS(`div.Nv2PK`),
	repository.CSS(`div[role='article']`),
}

var scrollContainers = []repository.Locator{
	repository.CSS(`div[role='feed']`),
	repository.CSS(`div.m6QErb[aria-label]`),
}

// cardLocators are unioned; the same card may match more than one.
var cardLocators = []repository.Locator{
	repository.CSS(`div.Nv2PK`),
	repository.CSS(`div[role='article']`),
}

// cardClickTarget is the primary interactive region inside a card.
const cardClickTarget = `a, div, button`

var detailIndicators = []repository.Locator{
	repository.CSS(`h1.DUwDvf`),
	repository.CSS(`div[role='main'] h1`),
}

// detailRegions are aggregated for the free-text phone fallback.
var detailRegions = []repository.Locator{
	repository.CSS(`div[role='main']`),
	repository.CSS(`div.m6QErb`),
	repository.CSS(`body`),
}

var (
	nameLocators = []repository.Locator{
		repository.CSS(`h1.DUwDvf`),
		repository.CSS(`div[role='main'] h1`),
	}
	addressLocators = []repository.Locator{
		repository.CSS(`button[data-item-id^='address']`),
		repository.CSS(`button[aria-label^='Address']`),
	}
	websiteLocators = []repository.Locator{
		repository.CSS(`a[data-item-id^='authority']`),
		repository.CSS(`a[data-item-id='website']`),
		repository.CSS(`a[aria-label^='Website']`),
	}
	categoryLocators = []repository.Locator{
		repository.CSS(`button[jsaction*='pane.rating.category']`),
		repository.CSS(`button[jsaction*='category']`),
	}
	ratingLocators = []repository.Locator{
		repository.CSS(`div.F7nice span[aria-hidden='true']`),
	}
	reviewLocators = []repository.Locator{
		repository.CSS(`button[jsaction*='pane.reviewChart.moreReviews']`),
		repository.CSS(`div.F7nice span[aria-label*='review']`),
	}
	telLinks     = repository.CSS(`a[href^='tel:']`)
	phoneButtons = repository.CSS(`button[aria-label*='Phone'], button[aria-label*='电话'], button[data-item-id^='phone']`)
)

var backButtons = []repository.Locator{
	repository.CSS(`button[aria-label*='Back']`),
	repository.CSS(`button[aria-label*='返回']`),
}

// maxPhoneElements caps how many tel links / phone buttons are read.
const maxPhoneElements = 5

func consentCandidates(timeout time.Duration) []Candidate {
	out := make([]Candidate, 0, len(consentLabels)+len(frameConsentLabels))
	for _, label := range consentLabels {
		out = append(out, Candidate{Locator: repository.Locator{Query: "button", HasText: label}, Timeout: timeout})
	}
	for _, label := range frameConsentLabels {
		out = append(out, Candidate{Locator: repository.Locator{Query: "button", HasText: label, Frame: "iframe"}, Timeout: timeout})
	}
	return out
}

func candidates(locs []repository.Locator, timeout time.Duration) []Candidate {
	out := make([]Candidate, len(locs))
	for i, l := range locs {
		out[i] = Candidate{Locator: l, Timeout: timeout}
	}
	return out
}
