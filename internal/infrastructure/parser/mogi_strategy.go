package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RealEstateCrawler/internal/domain"
	"RealEstateCrawler/internal/normalize"
	"RealEstateCrawler/internal/scanner"
)

const pageParam = "cp"

var propertyCodePrefixes = []string{"Mã tin:", "Mã BĐS:", "Mã tin", "Mã BĐS"}

// MogiStrategy scrapes mogi.vn apartment listings.
type MogiStrategy struct{}

var _ scanner.Strategy = (*MogiStrategy)(nil)

// NewMogiStrategy returns the mogi.vn markup strategy.
func NewMogiStrategy() *MogiStrategy {
	return &MogiStrategy{}
}

// Name identifies the strategy inside the registry.
func (m *MogiStrategy) Name() string {
	return "mogi"
}

// PageURL appends the ?cp=<page> pager parameter to the index URL.
func (m *MogiStrategy) PageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid index url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set(pageParam, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Fragments returns one selection per advertisement on an index page.
func (m *MogiStrategy) Fragments(doc *goquery.Document) []*goquery.Selection {
	var fragments []*goquery.Selection
	doc.Find("ul.props").First().ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		fragments = append(fragments, li)
	})
	return fragments
}

// ExtractListing reads the index-page fields of one advertisement.
func (m *MogiStrategy) ExtractListing(fragment *goquery.Selection, target domain.CrawlTarget, now time.Time) (domain.ListingRecord, error) {
	title := textOf(fragment.Find("h2.prop-title").First())
	if title == "" {
		return domain.ListingRecord{}, domain.Missing("title")
	}

	priceSel := fragment.Find("div.price").First()
	if priceSel.Length() == 0 {
		return domain.ListingRecord{}, domain.Missing("price")
	}
	priceText := textOf(priceSel)

	areaText := textOf(fragment.Find("ul.prop-attr li").First())
	area := normalize.ParseArea(areaText)
	if areaText == "" || area == 0 {
		return domain.ListingRecord{}, domain.Missing("area")
	}

	location := textOf(fragment.Find("div.prop-addr").First())
	if location == "" {
		return domain.ListingRecord{}, domain.Missing("location")
	}

	postedText := textOf(fragment.Find("div.prop-created").First())
	if postedText == "" {
		return domain.ListingRecord{}, domain.Missing("posted_time")
	}
	posted, ok := normalize.ParseDate(normalize.ParsePostedDate(postedText, now), now.Location())
	if !ok {
		return domain.ListingRecord{}, domain.Invalid("posted_time", postedText)
	}

	// one attribute per <li>; joined text would glue "m2" onto "2 PN"
	var attrs []string
	fragment.Find("ul.prop-attr li").Each(func(_ int, li *goquery.Selection) {
		attrs = append(attrs, textOf(li))
	})
	attrText := strings.Join(attrs, " | ")

	return domain.ListingRecord{
		Title:      title,
		Price:      normalize.ParsePrice(priceText, target.IsSelling),
		Area:       area,
		Location:   location,
		Bedrooms:   normalize.ParseBedrooms(attrText),
		Bathrooms:  normalize.ParseBathrooms(attrText),
		PostedTime: posted,
		IsSelling:  target.IsSelling,
		DetailURL:  detailURL(fragment, target.URL),
	}, nil
}

// ExtractDetail reads the optional fields of a detail page. Missing blocks
// leave their fields empty.
func (m *MogiStrategy) ExtractDetail(doc *goquery.Document) domain.Detail {
	var d domain.Detail

	d.PropertyCode = propertyCode(doc)

	address := textOf(doc.Find("div.property-location").First())
	if address == "" {
		address = textOf(doc.Find("div.address").First())
	}
	d.Street, d.Ward, d.District, d.City = normalize.SplitAddress(address)

	d.Description = strings.TrimSpace(doc.Find("div.description").First().Text())

	doc.Find(".map-content iframe, iframe.map").EachWithBreak(func(_ int, frame *goquery.Selection) bool {
		for _, attr := range []string{"data-src", "src"} {
			if v, ok := frame.Attr(attr); ok {
				if c := normalize.ParseCoordinates(v); c != nil {
					d.Coordinates = c
					return false
				}
			}
		}
		return true
	})

	return d
}

func propertyCode(doc *goquery.Document) string {
	if code := stripCodePrefix(textOf(doc.Find("div.property-id").First())); code != "" {
		return code
	}

	var code string
	doc.Find(".info-attr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		spans := row.Find("span")
		if spans.Length() < 2 {
			return true
		}
		if strings.HasPrefix(textOf(spans.First()), "Mã") {
			code = textOf(spans.Last())
			return false
		}
		return true
	})
	return code
}

func stripCodePrefix(text string) string {
	for _, prefix := range propertyCodePrefixes {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return text
}

func detailURL(fragment *goquery.Selection, indexURL string) string {
	href, ok := fragment.Find("a.prop-title").First().Attr("href")
	if !ok {
		href, ok = fragment.Find("a[href]").First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func textOf(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
