package rating

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	jsoniter "github.com/json-iterator/go"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	MinRating = 1
	MaxRating = 5
)

// ParseReviews decodes the Reviews_Data field. Blank input is an empty list.
// Entries that are not objects or lack a numeric rating in range are skipped.
// Entries may carry an RFC 3339 "timestamp" or a human "date" such as
// "October 17, 2026".
func ParseReviews(raw string) ([]domain.Review, error) {
	entries, err := rawEntries(raw)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(entries))
	for _, entry := range entries {
		var e map[string]interface{}
		if err := json.Unmarshal(entry, &e); err != nil || e == nil {
			continue
		}
		r, ok := ratingValue(e["rating"])
		if !ok {
			continue
		}
		reviews = append(reviews, domain.Review{
			Rating:    r,
			Timestamp: reviewTime(e),
			Name:      cast.ToString(e["name"]),
			Text:      cast.ToString(e["text"]),
		})
	}
	return reviews, nil
}

// AppendReview appends review to the stored Reviews_Data list. Stored entries
// are written back exactly as they were read. The mean and count cover the
// entries with a valid rating. A list that cannot be decoded is replaced.
func AppendReview(raw string, review domain.Review) (Update, error) {
	entries, err := rawEntries(raw)
	if err != nil {
		zap.L().Warn("unreadable review data replaced", zap.Error(err))
		entries = nil
	}
	entry, err := json.Marshal(review)
	if err != nil {
		return Update{}, errors.Wrap(err, "encode review")
	}
	entries = append(entries, entry)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e)
	}
	buf.WriteByte(']')

	reviews, err := ParseReviews(buf.String())
	if err != nil {
		return Update{}, err
	}
	mean, count := Aggregate(reviews)
	return Update{ReviewsData: buf.String(), Mean: mean, Count: count}, nil
}

func rawEntries(raw string) ([]jsoniter.RawMessage, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var entries []jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.Wrap(err, "decode reviews")
	}
	for i := range entries {
		entries[i] = bytes.TrimSpace(entries[i])
	}
	return entries, nil
}

// Aggregate returns the mean rating rounded to one decimal and the count.
// An empty list yields 0, 0.
func Aggregate(reviews []domain.Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	data := make(stats.Float64Data, len(reviews))
	for i, r := range reviews {
		data[i] = r.Rating
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 0
	}
	rounded, err := stats.Round(mean, 1)
	if err != nil {
		return mean, len(reviews)
	}
	return rounded, len(reviews)
}

// Validate checks a submission before anything is read or written.
func Validate(serviceID string, rating float64) error {
	if strings.TrimSpace(serviceID) == "" {
		return domain.ErrValidation("service id is required")
	}
	if !InRange(rating) {
		return domain.ErrValidation("rating must be a number between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// InRange reports whether r is a finite rating in [1,5].
func InRange(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= MinRating && r <= MaxRating
}

func ratingValue(v interface{}) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int64, string:
	default:
		return 0, false
	}
	r, err := cast.ToFloat64E(v)
	if err != nil || !InRange(r) {
		return 0, false
	}
	return r, true
}

func reviewTime(e map[string]interface{}) time.Time {
	for _, key := range []string{"timestamp", "date"} {
		s := strings.TrimSpace(cast.ToString(e[key]))
		if s == "" {
			continue
		}
		if t, err := dateparse.ParseAny(s); err == nil {
			return t
		}
	}
	return time.Time{}
}
