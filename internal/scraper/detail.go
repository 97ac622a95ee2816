package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/pkg/utils"
)

// DetailExtractor reads one Record out of a loaded detail view. Missing
// fields are left empty; only cancellation of ctx is reported as an error.
type DetailExtractor struct {
	session  repository.Session
	resolver Resolver
	logger   *zap.Logger
	opts     Options
}

func NewDetailExtractor(session repository.Session, logger *zap.Logger, opts Options) *DetailExtractor {
	return &DetailExtractor{
		session:  session,
		resolver: NewResolver(session),
		logger:   logger,
		opts:     opts,
	}
}

func (d *DetailExtractor) Extract(ctx context.Context) (entity.Record, error) {
	var rec entity.Record

	rec.Name = d.fieldText(ctx, nameLocators)
	rec.Address = d.address(ctx)
	rec.Category = d.fieldText(ctx, categoryLocators)
	rec.Rating = d.fieldText(ctx, ratingLocators)
	rec.ReviewsCount = d.reviews(ctx)

	pageURL, err := d.session.CurrentURL(ctx)
	if err != nil {
		d.logger.Debug("current url unavailable", zap.Error(err))
	}
	rec.SourceURL = pageURL
	if href := d.fieldAttr(ctx, websiteLocators, "href"); href != "" {
		rec.Website = utils.NormalizeLink(pageURL, href)
	}
	if c, ok := ExtractCoordinates(pageURL); ok {
		lat, lng := c.Lat, c.Lng
		rec.Latitude, rec.Longitude = &lat, &lng
	}

	phones := d.labeledPhones(ctx)
	if len(phones) == 0 {
		phones = ExtractPhoneCandidates(d.regionText(ctx))
	}
	rec.Phone = strings.Join(phones, "; ")

	if err := ctx.Err(); err != nil {
		return rec, err
	}
	return rec, nil
}

func (d *DetailExtractor) resolve(ctx context.Context, locs []repository.Locator) (repository.Element, bool) {
	res := d.resolver.Resolve(ctx, candidates(locs, d.opts.FieldTimeout))
	return res.Element, res.Found()
}

func (d *DetailExtractor) fieldText(ctx context.Context, locs []repository.Locator) string {
	el, ok := d.resolve(ctx, locs)
	if !ok {
		return ""
	}
	text, err := d.session.Text(ctx, el)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (d *DetailExtractor) fieldAttr(ctx context.Context, locs []repository.Locator, name string) string {
	el, ok := d.resolve(ctx, locs)
	if !ok {
		return ""
	}
	v, _, err := d.session.Attribute(ctx, el, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// address prefers the control's visible text and falls back to its label,
// which reads "Address: <value>".
func (d *DetailExtractor) address(ctx context.Context) string {
	el, ok := d.resolve(ctx, addressLocators)
	if !ok {
		return ""
	}
	if text, err := d.session.Text(ctx, el); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	label, _, err := d.session.Attribute(ctx, el, "aria-label")
	if err != nil {
		return ""
	}
	return stripLabel(label)
}

func (d *DetailExtractor) reviews(ctx context.Context) string {
	el, ok := d.resolve(ctx, reviewLocators)
	if !ok {
		return ""
	}
	if text, err := d.session.Text(ctx, el); err == nil {
		if n := ParseReviewCount(text); n != "" {
			return n
		}
	}
	label, _, err := d.session.Attribute(ctx, el, "aria-label")
	if err != nil {
		return ""
	}
	return ParseReviewCount(label)
}

// labeledPhones reads tel: links first and phone-labelled controls second.
func (d *DetailExtractor) labeledPhones(ctx context.Context) []string {
	var phones []string
	for _, el := range d.firstN(ctx, telLinks) {
		href, ok, err := d.session.Attribute(ctx, el, "href")
		if err != nil || !ok {
			continue
		}
		if p := strings.TrimSpace(strings.TrimPrefix(href, "tel:")); p != "" {
			phones = append(phones, p)
		}
	}
	if len(phones) > 0 {
		return DedupePhones(phones)
	}

	for _, el := range d.firstN(ctx, phoneButtons) {
		label, ok, err := d.session.Attribute(ctx, el, "aria-label")
		if err != nil || !ok {
			continue
		}
		phones = append(phones, ExtractPhoneCandidates(label)...)
	}
	return DedupePhones(phones)
}

func (d *DetailExtractor) firstN(ctx context.Context, loc repository.Locator) []repository.Element {
	n, err := d.session.Count(ctx, loc)
	if err != nil || n == 0 {
		return nil
	}
	if n > maxPhoneElements {
		n = maxPhoneElements
	}
	out := make([]repository.Element, n)
	for i := range out {
		out[i] = loc.Nth(i)
	}
	return out
}

// regionText returns the visible text of the first detail region present,
// one text node per line.
func (d *DetailExtractor) regionText(ctx context.Context) string {
	el, ok := d.resolve(ctx, detailRegions)
	if !ok {
		return ""
	}
	raw, err := d.session.HTML(ctx, el)
	if err != nil {
		d.logger.Debug("detail region unreadable", zap.Error(err))
		return ""
	}
	return visibleText(raw)
}

// visibleText returns the text nodes of raw in document order, one per line.
func visibleText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()

	var (
		lines []string
		walk  func(*html.Node)
	)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

func stripLabel(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.Index(label, ":"); i >= 0 {
		return strings.TrimSpace(label[i+1:])
	}
	return label
}
