package domain

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout is the canonical day-month-year form used for posted dates.
const DateLayout = "02-01-2006"

// Coordinates is a WGS84 point taken from a listing's map embed.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// ListingRecord is one scraped advertisement after normalisation.
type ListingRecord struct {
	Title        string
	Price        int64
	Area         float64
	Location     string
	Street       string
	Ward         string
	District     string
	City         string
	Bedrooms     int
	Bathrooms    int
	PostedTime   time.Time
	IsSelling    bool
	PropertyCode string
	Coordinates  *Coordinates
	Description  string
	DetailURL    string
}

// Detail holds the optional fields only a detail page carries.
type Detail struct {
	PropertyCode string
	Street       string
	Ward         string
	District     string
	City         string
	Description  string
	Coordinates  *Coordinates
}

// WithDetail returns a copy of the record enriched with detail-page fields.
func (r ListingRecord) WithDetail(d Detail) ListingRecord {
	r.PropertyCode = d.PropertyCode
	r.Street = d.Street
	r.Ward = d.Ward
	r.District = d.District
	r.City = d.City
	r.Description = d.Description
	if d.Coordinates != nil {
		c := *d.Coordinates
		r.Coordinates = &c
	}
	return r
}

// PostedDate renders the posted time in DateLayout.
func (r ListingRecord) PostedDate() string {
	return r.PostedTime.Format(DateLayout)
}

// CrawlTarget is one index URL swept by the paginator.
type CrawlTarget struct {
	Name      string
	URL       string
	IsSelling bool
}

// InferSelling guesses the listing type from the index URL path ("mua-can-ho", "ban-nha").
func InferSelling(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	for _, segment := range strings.Split(strings.ToLower(path), "/") {
		if strings.HasPrefix(segment, "mua") || strings.HasPrefix(segment, "ban-") {
			return true
		}
	}
	return false
}

// SinkOutcome reports what the record sink did with one record.
type SinkOutcome string

const (
	OutcomeInserted         SinkOutcome = "inserted"
	OutcomeDuplicateSkipped SinkOutcome = "duplicate_skipped"
)
