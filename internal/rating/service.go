// Package rating appends reviews to a service and keeps its stored mean in
// step with the review list.
package rating

import (
	"context"
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store reads and writes the rating fields of a service.
type Store interface {
	GetService(ctx context.Context, id string) (*domain.Service, error)
	UpdateRating(ctx context.Context, id string, update Update) error
}

// Update is the single write issued per submission.
type Update struct {
	ReviewsData string
	Mean        float64
	Count       int
}

type Submission struct {
	ServiceID string
	Rating    float64
	Name      string
	Text      string
}

type Result struct {
	ServiceID   string  `json:"serviceId"`
	NewRating   float64 `json:"newRating"`
	ReviewCount int     `json:"reviewCount"`
}

// Service is the rating aggregator. Concurrent submissions for the same
// service are not serialized, so one of them may be lost.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Submit validates the rating, appends it to the service's reviews and
// stores the new mean and count.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if err := Validate(sub.ServiceID, sub.Rating); err != nil {
		metrics.RatingSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	svc, err := s.store.GetService(ctx, sub.ServiceID)
	if err != nil {
		metrics.RatingSubmissions.WithLabelValues("failed").Inc()
		return nil, classify(err, "read service")
	}

	update, err := AppendReview(svc.ReviewsData, domain.Review{
		Rating:    sub.Rating,
		Timestamp: s.now().UTC(),
		Name:      sub.Name,
		Text:      sub.Text,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateRating(ctx, sub.ServiceID, update); err != nil {
		metrics.RatingSubmissions.WithLabelValues("failed").Inc()
		return nil, classify(err, "write rating")
	}

	metrics.RatingSubmissions.WithLabelValues("ok").Inc()
	zap.L().Info("rating submitted",
		zap.String("service_id", sub.ServiceID),
		zap.Float64("rating", sub.Rating),
		zap.Float64("mean", update.Mean),
		zap.Int("count", update.Count))
	return &Result{ServiceID: sub.ServiceID, NewRating: update.Mean, ReviewCount: update.Count}, nil
}

func classify(err error, op string) error {
	switch domain.KindOf(err) {
	case domain.KindInternal:
		return domain.ErrDependency(err, op+" failed")
	default:
		return errors.WithMessage(err, op)
	}
}
