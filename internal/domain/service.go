package domain

import (
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// Airtable field names of the Services table.
const (
	FieldServiceName        = "Name"
	FieldServiceSellerEmail = "Seller_Email"
	FieldServiceTitle       = "Title"
	FieldServiceDescription = "Description"
	FieldServicePrice       = "Price"
	FieldServiceVendorPrice = "Vendor_Price"
	FieldServiceContact     = "Contact"
	FieldServiceTelegram    = "Telegram_Username"
	FieldServiceWorks       = "Works"
	FieldServiceReviews     = "Reviews_Data"
	FieldServiceRating      = "Total_Rating"
	FieldServiceReviewCount = "Review_Count"
	FieldServiceVerified    = "Verified"
)

// OthersCategory is used for listings without a title.
const OthersCategory = "Others"

// Service is a marketplace listing. The category of a listing is its title.
type Service struct {
	ID          string    `json:"id" mapstructure:"-"`
	CreatedTime time.Time `json:"created_time" mapstructure:"-"`
	Name        string    `json:"name" mapstructure:"Name"`
	SellerEmail string    `json:"seller_email,omitempty" mapstructure:"Seller_Email"`
	Title       string    `json:"title" mapstructure:"Title"`
	Description string    `json:"description" mapstructure:"Description"`
	Price       float64   `json:"price" mapstructure:"Price"`
	VendorPrice *float64  `json:"vendor_price,omitempty" mapstructure:"Vendor_Price"`
	Contact     string    `json:"contact,omitempty" mapstructure:"Contact"`
	Telegram    string    `json:"telegram,omitempty" mapstructure:"Telegram_Username"`
	Works       string    `json:"-" mapstructure:"Works"`
	ReviewsData string    `json:"-" mapstructure:"Reviews_Data"`
	TotalRating float64   `json:"total_rating" mapstructure:"Total_Rating"`
	ReviewCount int       `json:"review_count" mapstructure:"Review_Count"`
	Verified    bool      `json:"verified" mapstructure:"Verified"`

	Images  []string `json:"images" mapstructure:"-"`
	Reviews []Review `json:"reviews" mapstructure:"-"`
}

// Category returns the pseudo-category of the listing.
func (s Service) Category() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return OthersCategory
}

// MeanRating returns the mean of the review ratings rounded to one decimal,
// the precision of the stored mean it falls back to when the review list is
// unavailable. Zero reviews rank as 0.
func (s Service) MeanRating() float64 {
	if len(s.Reviews) > 0 {
		data := make(stats.Float64Data, len(s.Reviews))
		for i, r := range s.Reviews {
			data[i] = r.Rating
		}
		mean, _ := stats.Mean(data)
		if rounded, err := stats.Round(mean, 1); err == nil {
			return rounded
		}
		return mean
	}
	if s.ReviewCount > 0 {
		return s.TotalRating
	}
	return 0
}

// NumReviews returns the review count, preferring the parsed list.
func (s Service) NumReviews() int {
	if len(s.Reviews) > 0 {
		return len(s.Reviews)
	}
	return s.ReviewCount
}

// OwnedBy reports whether the listing belongs to the given seller. Rows
// without a seller email fall back to a seller name match.
func (s Service) OwnedBy(email, name string) bool {
	if s.SellerEmail != "" {
		return strings.EqualFold(s.SellerEmail, email)
	}
	return name != "" && s.Name == name
}

// SplitWorks splits the newline-delimited Works field into image URLs.
func SplitWorks(works string) []string {
	var urls []string
	for _, line := range strings.Split(works, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// JoinWorks is the inverse of SplitWorks.
func JoinWorks(urls []string) string {
	return strings.Join(urls, "\n")
}
