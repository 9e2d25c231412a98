// Package filter drops listings whose values cannot be real.
package filter

import "RealEstateCrawler/internal/domain"

const (
	MaxBedrooms  = 5
	MinPrice     = 1_000_000
	MinArea      = 10
	MinSalePrice = 100_000_000
)

// Reason names the rule a record broke.
type Reason string

const (
	TooManyBedrooms Reason = "too_many_bedrooms"
	PriceTooLow     Reason = "price_below_floor"
	AreaTooSmall    Reason = "area_below_floor"
	SalePriceTooLow Reason = "sale_price_below_floor"
)

// Check returns the first broken rule, or ok=true when the record is plausible.
func Check(rec domain.ListingRecord) (Reason, bool) {
	switch {
	case rec.Bedrooms > MaxBedrooms:
		return TooManyBedrooms, false
	case rec.Price < MinPrice:
		return PriceTooLow, false
	case rec.Area < MinArea:
		return AreaTooSmall, false
	case rec.IsSelling && rec.Price < MinSalePrice:
		return SalePriceTooLow, false
	}
	return "", true
}

// IsPlausible reports whether the record passes every rule.
func IsPlausible(rec domain.ListingRecord) bool {
	_, ok := Check(rec)
	return ok
}
