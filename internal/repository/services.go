package repository

import (
	"context"

	"github.com/linkupcampus/linkup/internal/airtable"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/rating"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ServiceRepository stores marketplace listings in the Services table.
type ServiceRepository struct {
	client Client
	table  string
}

var _ rating.Store = (*ServiceRepository)(nil)

func NewServiceRepository(client Client, table string) *ServiceRepository {
	return &ServiceRepository{client: client, table: table}
}

// ServiceInput carries the editable fields of a listing.
type ServiceInput struct {
	Title       string
	Description string
	Price       float64
	VendorPrice *float64
	Contact     string
	Telegram    string
	Images      []string
}

func (in ServiceInput) fields() map[string]interface{} {
	var vendor interface{}
	if in.VendorPrice != nil {
		vendor = *in.VendorPrice
	}
	return map[string]interface{}{
		domain.FieldServiceTitle:       in.Title,
		domain.FieldServiceDescription: in.Description,
		domain.FieldServicePrice:       in.Price,
		domain.FieldServiceVendorPrice: vendor,
		domain.FieldServiceContact:     in.Contact,
		domain.FieldServiceTelegram:    in.Telegram,
		domain.FieldServiceWorks:       domain.JoinWorks(in.Images),
	}
}

// List returns every listing. Records that cannot be decoded are skipped.
func (r *ServiceRepository) List(ctx context.Context) ([]domain.Service, error) {
	recs, err := r.client.List(ctx, r.table, airtable.ListOptions{PageSize: airtable.MaxPageSize})
	if err != nil {
		return nil, mapErr(err, "services table")
	}
	services := make([]domain.Service, 0, len(recs))
	for _, rec := range recs {
		svc, err := toService(rec)
		if err != nil {
			zap.L().Warn("skip malformed service record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		services = append(services, *svc)
	}
	return services, nil
}

// GetService fetches one listing.
func (r *ServiceRepository) GetService(ctx context.Context, id string) (*domain.Service, error) {
	rec, err := r.client.Get(ctx, r.table, id)
	if err != nil {
		return nil, mapErr(err, "service")
	}
	svc, err := toService(*rec)
	if err != nil {
		return nil, domain.ErrDependency(err, "malformed service record")
	}
	return svc, nil
}

// Create stores a new listing owned by the given seller with an empty
// review history.
func (r *ServiceRepository) Create(ctx context.Context, sellerName, sellerEmail string, in ServiceInput) (*domain.Service, error) {
	fields := in.fields()
	fields[domain.FieldServiceName] = sellerName
	fields[domain.FieldServiceSellerEmail] = sellerEmail
	fields[domain.FieldServiceReviews] = "[]"
	fields[domain.FieldServiceRating] = 0
	fields[domain.FieldServiceReviewCount] = 0
	fields[domain.FieldServiceVerified] = false

	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return nil, mapErr(err, "services table")
	}
	return toService(*rec)
}

// Update replaces the editable fields of a listing.
func (r *ServiceRepository) Update(ctx context.Context, id string, in ServiceInput) (*domain.Service, error) {
	rec, err := r.client.Update(ctx, r.table, id, in.fields())
	if err != nil {
		return nil, mapErr(err, "service")
	}
	return toService(*rec)
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return mapErr(r.client.Delete(ctx, r.table, id), "service")
}

// UpdateRating writes the review list, mean and count in one request.
func (r *ServiceRepository) UpdateRating(ctx context.Context, id string, u rating.Update) error {
	_, err := r.client.Update(ctx, r.table, id, map[string]interface{}{
		domain.FieldServiceReviews:     u.ReviewsData,
		domain.FieldServiceRating:      u.Mean,
		domain.FieldServiceReviewCount: u.Count,
	})
	return mapErr(err, "service")
}

// Probe reads at most one record to check credentials and table access.
func (r *ServiceRepository) Probe(ctx context.Context) error {
	_, err := r.client.List(ctx, r.table, airtable.ListOptions{
		PageSize:   1,
		MaxRecords: 1,
		Fields:     []string{domain.FieldServiceTitle},
	})
	return mapErr(err, "services table")
}

func toService(rec airtable.Record) (*domain.Service, error) {
	svc := &domain.Service{}
	if err := decodeFields(rec.Fields, svc); err != nil {
		return nil, errors.Wrapf(err, "decode service %s", rec.ID)
	}
	svc.ID = rec.ID
	svc.CreatedTime = rec.Created()
	svc.Images = domain.SplitWorks(svc.Works)

	reviews, err := rating.ParseReviews(svc.ReviewsData)
	if err != nil {
		zap.L().Warn("corrupt review data, treating as empty",
			zap.String("id", rec.ID), zap.Error(err))
		reviews = nil
	}
	svc.Reviews = reviews
	return svc, nil
}
