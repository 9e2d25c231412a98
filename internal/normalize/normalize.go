// Package normalize turns free-text listing fields into typed values.
// Nothing here returns an error: unparseable input degrades to a zero value
// (or the unchanged text for dates) that the filter stage rejects later.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"RealEstateCrawler/internal/domain"
)

var (
	amountExpr   = regexp.MustCompile(`(\d+(?:[.,]\d+)*)\s*(tỷ|ty|billion|triệu|trieu|million|nghìn|ngàn|thousand)`)
	numberExpr   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	dateExpr     = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)
	bedroomExpr  = regexp.MustCompile(`(?i)(\d+)\s*PN`)
	bathroomExpr = regexp.MustCompile(`(?i)(\d+)\s*WC`)
	coordExpr    = regexp.MustCompile(`(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)`)
)

var unitValues = map[string]float64{
	"tỷ":       1e9,
	"ty":       1e9,
	"billion":  1e9,
	"triệu":    1e6,
	"trieu":    1e6,
	"million":  1e6,
	"nghìn":    1e3,
	"ngàn":     1e3,
	"thousand": 1e3,
}

// ParsePrice converts texts like "2 tỷ 500 triệu" or "1.5 tỷ" into VND.
// It returns 0 when no unit token is present. A sale price quoted per square
// metre is not a total and also yields 0.
func ParsePrice(text string, isSelling bool) int64 {
	lower := strings.ToLower(norm.NFC.String(text))
	if isSelling && (strings.Contains(lower, "/m²") || strings.Contains(lower, "/m2")) {
		return 0
	}

	matches := amountExpr.FindAllStringSubmatch(lower, -1)
	if len(matches) == 0 {
		return 0
	}

	var total float64
	for _, m := range matches {
		value, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		total += value * unitValues[m[2]]
	}
	return int64(math.Round(total))
}

// ParsePostedDate resolves "Hôm nay"/"Hôm qua" against now and rewrites any
// day-month-year date to dd-mm-yyyy. Other text is returned unchanged.
func ParsePostedDate(text string, now time.Time) string {
	lower := strings.ToLower(norm.NFC.String(text))

	switch {
	case strings.Contains(lower, "hôm nay") || strings.Contains(lower, "today"):
		return now.Format(domain.DateLayout)
	case strings.Contains(lower, "hôm qua") || strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1).Format(domain.DateLayout)
	}

	m := dateExpr.FindStringSubmatch(lower)
	if m == nil {
		return text
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return text
	}
	return t.Format(domain.DateLayout)
}

// ParseDate reads a dd-mm-yyyy string produced by ParsePostedDate.
func ParseDate(canonical string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(canonical), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseArea extracts the first number in text, e.g. "45m²" or "1.200 m²".
func ParseArea(text string) float64 {
	match := numberExpr.FindString(text)
	if match == "" {
		return 0
	}
	value, _ := parseNumber(match)
	return value
}

// ParseBedrooms reads the "<n> PN" marker; absent means 0.
func ParseBedrooms(text string) int {
	return firstInt(bedroomExpr, text)
}

// ParseBathrooms reads the "<n> WC" marker; absent means 0.
func ParseBathrooms(text string) int {
	return firstInt(bathroomExpr, text)
}

// SplitAddress returns the last four comma-separated parts of an address as
// street, ward, district and city. Shorter addresses give four empty strings.
func SplitAddress(text string) (street, ward, district, city string) {
	var parts []string
	for _, p := range strings.Split(norm.NFC.String(text), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 4 {
		return "", "", "", ""
	}
	tail := parts[len(parts)-4:]
	return tail[0], tail[1], tail[2], tail[3]
}

// ParseCoordinates finds the first "lat,lng" pair in a map URL or attribute.
func ParseCoordinates(text string) *domain.Coordinates {
	text = strings.NewReplacer("%2C", ",", "%2c", ",").Replace(text)
	m := coordExpr.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 || (lat == 0 && lng == 0) {
		return nil
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lng}
}

// parseNumber treats "." or "," followed by exactly three digits as a
// thousands separator and any other separator as the decimal point.
func parseNumber(raw string) (float64, bool) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) == 0 {
		return 0, false
	}

	grouped := true
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
			break
		}
	}

	literal := strings.Join(parts, "")
	if !grouped {
		last := len(parts) - 1
		literal = strings.Join(parts[:last], "") + "." + parts[last]
	}

	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func firstInt(expr *regexp.Regexp, text string) int {
	m := expr.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
