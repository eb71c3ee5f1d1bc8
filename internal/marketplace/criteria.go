package marketplace

import (
	"strings"

	"github.com/linkupcampus/linkup/internal/domain"
)

type PriceBucket string

const (
	PriceAny     PriceBucket = ""
	PriceUnder   PriceBucket = "under"
	PriceBetween PriceBucket = "between"
	PriceOver    PriceBucket = "over"
)

// Price bucket boundaries in naira.
const (
	LowPrice  = 5000
	HighPrice = 10000
)

type SortKey string

const (
	SortPopular   SortKey = "popular"
	SortRating    SortKey = "rating"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// AllCategories disables the category filter.
const AllCategories = "All Categories"

// Criteria are independent, conjunctive listing filters plus a sort key.
type Criteria struct {
	Query    string
	Category string
	Price    PriceBucket
	Sort     SortKey
	Seller   string
}

var priceLabels = map[string]PriceBucket{
	"":                 PriceAny,
	"any":              PriceAny,
	"any price":        PriceAny,
	"under":            PriceUnder,
	"under ₦5,000":     PriceUnder,
	"between":          PriceBetween,
	"₦5,000 - ₦10,000": PriceBetween,
	"over":             PriceOver,
	"over ₦10,000":     PriceOver,
}

var sortLabels = map[string]SortKey{
	"":                   SortPopular,
	"popular":            SortPopular,
	"most popular":       SortPopular,
	"rating":             SortRating,
	"highest rated":      SortRating,
	"price_asc":          SortPriceAsc,
	"price: low to high": SortPriceAsc,
	"price_desc":         SortPriceDesc,
	"price: high to low": SortPriceDesc,
}

// ParsePriceBucket accepts UI labels such as "Under ₦5,000" and short codes.
func ParsePriceBucket(s string) (PriceBucket, error) {
	if b, ok := priceLabels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return b, nil
	}
	return PriceAny, domain.ErrValidation("unknown price range %q", s)
}

// ParseSortKey accepts UI labels such as "Price: Low to High" and short codes.
func ParseSortKey(s string) (SortKey, error) {
	if k, ok := sortLabels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return SortPopular, domain.ErrValidation("unknown sort order %q", s)
}

// Contains reports whether price falls in the bucket.
func (b PriceBucket) Contains(price float64) bool {
	switch b {
	case PriceUnder:
		return price < LowPrice
	case PriceBetween:
		return price >= LowPrice && price <= HighPrice
	case PriceOver:
		return price > HighPrice
	default:
		return true
	}
}
