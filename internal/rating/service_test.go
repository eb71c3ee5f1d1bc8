package rating

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	services map[string]*domain.Service
	getErr   error
	writeErr error
	gets     int
	writes   []Update
}

func (f *fakeStore) GetService(_ context.Context, id string) (*domain.Service, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	svc, ok := f.services[id]
	if !ok {
		return nil, domain.ErrNotFound("service not found")
	}
	cp := *svc
	return &cp, nil
}

func (f *fakeStore) UpdateRating(_ context.Context, id string, u Update) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, u)
	reviews, err := ParseReviews(u.ReviewsData)
	if err != nil {
		return err
	}
	svc := f.services[id]
	svc.Reviews, svc.ReviewsData, svc.TotalRating, svc.ReviewCount = reviews, u.ReviewsData, u.Mean, u.Count
	return nil
}

func newFixture(ratings ...float64) (*fakeStore, *Service) {
	entries := make([]string, len(ratings))
	for i, r := range ratings {
		entries[i] = fmt.Sprintf(`{"rating":%v}`, r)
	}
	raw := "[" + strings.Join(entries, ",") + "]"
	reviews, _ := ParseReviews(raw)
	store := &fakeStore{services: map[string]*domain.Service{
		"rec1": {ID: "rec1", ReviewsData: raw, Reviews: reviews, ReviewCount: len(reviews)},
	}}
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return store, svc
}

func TestSubmit_AppendsAndAverages(t *testing.T) {
	store, svc := newFixture(5, 3, 4)

	res, err := svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: 2, Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.NewRating)
	assert.Equal(t, 4, res.ReviewCount)

	require.Len(t, store.writes, 1)
	w := store.writes[0]
	assert.Equal(t, 3.5, w.Mean)
	assert.Equal(t, 4, w.Count)
	assert.Contains(t, w.ReviewsData, `"timestamp":"2026-10-17T12:00:00Z"`)
	assert.Contains(t, w.ReviewsData, `"name":"Ada"`)
}

func TestSubmit_PreservesStoredReviews(t *testing.T) {
	store, svc := newFixture()
	prior := `[{"name":"Bola","rating":4,"date":"October 17, 2026","reviewerId":"u9"},{"rating":"bad","text":"kept?"}]`
	store.services["rec1"].ReviewsData = prior

	res, err := svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.NewRating)
	assert.Equal(t, 2, res.ReviewCount)

	require.Len(t, store.writes, 1)
	assert.True(t, strings.HasPrefix(store.writes[0].ReviewsData, strings.TrimSuffix(prior, "]")+","),
		store.writes[0].ReviewsData)
}

func TestSubmit_FirstReview(t *testing.T) {
	_, svc := newFixture()
	res, err := svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.NewRating)
	assert.Equal(t, 1, res.ReviewCount)
}

func TestSubmit_MeanProperty(t *testing.T) {
	prior := []float64{5, 1, 2, 4, 4, 3}
	for r := 1; r <= 5; r++ {
		_, svc := newFixture(prior...)
		res, err := svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: float64(r)})
		require.NoError(t, err)

		want := math.Round((19+float64(r))/7*10) / 10
		assert.InDelta(t, want, res.NewRating, 1e-9)
		assert.Equal(t, len(prior)+1, res.ReviewCount)
		assert.GreaterOrEqual(t, res.NewRating, 1.0)
		assert.LessOrEqual(t, res.NewRating, 5.0)
	}
}

func TestSubmit_RejectsBeforeAnyCall(t *testing.T) {
	store, svc := newFixture(5)
	for _, sub := range []Submission{
		{ServiceID: "rec1", Rating: 0},
		{ServiceID: "rec1", Rating: 6},
		{ServiceID: "", Rating: 3},
	} {
		_, err := svc.Submit(context.Background(), sub)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
	assert.Zero(t, store.gets)
	assert.Empty(t, store.writes)
}

func TestSubmit_Errors(t *testing.T) {
	store, svc := newFixture(5)

	_, err := svc.Submit(context.Background(), Submission{ServiceID: "recMissing", Rating: 3})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	store.getErr = errors.New("connection reset")
	_, err = svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: 3})
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))

	store.getErr = nil
	store.writeErr = errors.New("503")
	_, err = svc.Submit(context.Background(), Submission{ServiceID: "rec1", Rating: 3})
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))
	assert.Empty(t, store.writes)
}
