package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedListings(e *testEnv) map[string]string {
	ids := map[string]string{}
	ids["braids"] = e.airtable.Seed(servicesTable, map[string]interface{}{
		"Name": "Ada", "Title": "Hair", "Description": "Knotless braids", "Price": 4000,
		"Reviews_Data": `[{"rating":5},{"rating":4}]`, "Total_Rating": 4.5, "Review_Count": 2,
	})
	ids["laptop"] = e.airtable.Seed(servicesTable, map[string]interface{}{
		"Name": "Bola", "Title": "Repairs", "Description": "Laptop screen repair", "Price": 9000,
		"Reviews_Data": `[{"rating":3},{"rating":3},{"rating":4}]`, "Total_Rating": 3.3, "Review_Count": 3,
	})
	ids["shoot"] = e.airtable.Seed(servicesTable, map[string]interface{}{
		"Name": "Chidi", "Title": "Photography", "Description": "Graduation shoot", "Price": "15,000",
	})
	return ids
}

func listTitles(t *testing.T, e *testEnv, query url.Values) ([]string, *Meta) {
	t.Helper()
	rec := e.do(http.MethodGet, "/api/services?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var services []domain.Service
	meta := decodeData(t, rec, &services)
	titles := make([]string, 0, len(services))
	for _, s := range services {
		titles = append(titles, s.Title)
	}
	return titles, meta
}

func TestListServices(t *testing.T) {
	e := newTestEnv(t)
	seedListings(e)

	titles, meta := listTitles(t, e, url.Values{})
	assert.Equal(t, []string{"Repairs", "Hair", "Photography"}, titles, "most reviewed first")
	assert.Equal(t, int64(3), meta.Total)

	titles, _ = listTitles(t, e, url.Values{"price": {"Under ₦5,000"}})
	assert.Equal(t, []string{"Hair"}, titles)

	titles, _ = listTitles(t, e, url.Values{"sort": {"Price: Low to High"}})
	assert.Equal(t, []string{"Hair", "Repairs", "Photography"}, titles)

	titles, _ = listTitles(t, e, url.Values{"sort": {"rating"}})
	assert.Equal(t, []string{"Hair", "Repairs", "Photography"}, titles)

	titles, _ = listTitles(t, e, url.Values{"q": {"LAPTOP"}})
	assert.Equal(t, []string{"Repairs"}, titles)

	titles, _ = listTitles(t, e, url.Values{"category": {"All Categories"}, "price": {"over"}})
	assert.Equal(t, []string{"Photography"}, titles)

	titles, meta = listTitles(t, e, url.Values{"sort": {"price_desc"}, "page": {"2"}, "perPage": {"2"}})
	assert.Equal(t, []string{"Hair"}, titles)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, 2, meta.Page)
}

func TestListServices_InvalidCriteria(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/api/services?price=cheap", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodGet, "/api/services?sort=newest", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListServices_UpstreamFailure(t *testing.T) {
	e := newTestEnv(t)
	e.airtable.FailWith(http.MethodGet, http.StatusInternalServerError)
	rec := e.do(http.MethodGet, "/api/services", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decode(t, rec).Error)
}

func TestCategories(t *testing.T) {
	e := newTestEnv(t)
	seedListings(e)
	e.airtable.Seed(servicesTable, map[string]interface{}{"Name": "Dayo", "Title": "Hair", "Price": 3000})
	e.airtable.Seed(servicesTable, map[string]interface{}{"Name": "Efe", "Price": 3000})

	rec := e.do(http.MethodGet, "/api/services/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []string
	decodeData(t, rec, &categories)
	assert.Equal(t, []string{"Hair", "Repairs", "Photography", "Others"}, categories)
}

func TestGetService(t *testing.T) {
	e := newTestEnv(t)
	ids := seedListings(e)

	rec := e.do(http.MethodGet, "/api/services/"+ids["braids"], nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var svc domain.Service
	decodeData(t, rec, &svc)
	assert.Equal(t, "Hair", svc.Title)
	assert.Len(t, svc.Reviews, 2)

	rec = e.do(http.MethodGet, "/api/services/recMISSING", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateService(t *testing.T) {
	e := newTestEnv(t)
	seedListings(e)
	titles, _ := listTitles(t, e, url.Values{})
	require.Len(t, titles, 3)

	body := map[string]interface{}{
		"title": "Tutoring", "description": "Calculus lessons", "linkupPrice": "₦7,500",
		"vendorPrice": 9000, "whatsapp": "0800", "telegram": "@ada",
		"images": []string{"https://img.test/1.png", "https://img.test/2.png"},
	}
	rec := e.do(http.MethodPost, "/api/services", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := e.signup("Ada", "ada@uni.edu", "Seller")
	rec = e.do(http.MethodPost, "/api/services", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var svc domain.Service
	decodeData(t, rec, &svc)
	assert.Equal(t, 7500.0, svc.Price)
	assert.Equal(t, []string{"https://img.test/1.png", "https://img.test/2.png"}, svc.Images)

	row, found := e.airtable.Record(servicesTable, svc.ID)
	require.True(t, found)
	assert.Equal(t, "Ada", row.Fields["Name"])
	assert.Equal(t, "ada@uni.edu", row.Fields["Seller_Email"])
	assert.Equal(t, "[]", row.Fields["Reviews_Data"])
	assert.Equal(t, 0.0, row.Fields["Total_Rating"])
	assert.Equal(t, false, row.Fields["Verified"])
	assert.Equal(t, "ada", row.Fields["Telegram_Username"])
	assert.Equal(t, "https://img.test/1.png\nhttps://img.test/2.png", row.Fields["Works"])

	titles, _ = listTitles(t, e, url.Values{})
	assert.Len(t, titles, 4, "cache invalidated after create")
}

func TestCreateService_Validation(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("Ada", "ada@uni.edu", "Seller")
	cases := []map[string]interface{}{
		{"description": "no title", "linkupPrice": 100},
		{"title": "No price", "description": "x"},
		{"title": "Bad price", "description": "x", "linkupPrice": "lots"},
		{"title": "Zero price", "description": "x", "linkupPrice": 0},
		{"title": "Bad image", "description": "x", "linkupPrice": 100, "images": []string{"not a url"}},
		{"title": "Too many", "description": "x", "linkupPrice": 100, "images": []string{
			"https://i.test/1", "https://i.test/2", "https://i.test/3", "https://i.test/4"}},
	}
	for _, body := range cases {
		rec := e.do(http.MethodPost, "/api/services", body, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, e.airtable.Records(servicesTable))

	rec := e.do(http.MethodPost, "/api/services", "{not json", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDelete_Ownership(t *testing.T) {
	e := newTestEnv(t)
	ada := e.signup("Ada", "ada@uni.edu", "Seller")
	bola := e.signup("Bola", "bola@uni.edu", "Seller")

	rec := e.do(http.MethodPost, "/api/services", map[string]interface{}{
		"title": "Tutoring", "description": "Calculus", "linkupPrice": 5000,
	}, ada)
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc domain.Service
	decodeData(t, rec, &svc)

	update := map[string]interface{}{"title": "Tutoring", "description": "Calculus and algebra", "linkupPrice": 6000}
	rec = e.do(http.MethodPut, "/api/services/"+svc.ID, update, bola)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPut, "/api/services/"+svc.ID, update, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Service
	decodeData(t, rec, &updated)
	assert.Equal(t, "Calculus and algebra", updated.Description)
	assert.Equal(t, 6000.0, updated.Price)

	rec = e.do(http.MethodDelete, "/api/services/"+svc.ID, nil, bola)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodDelete, "/api/services/"+svc.ID, nil, ada)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/services/"+svc.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodDelete, "/api/services/"+svc.ID, nil, ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate_LegacyOwnershipByName(t *testing.T) {
	e := newTestEnv(t)
	ids := seedListings(e)
	token := e.signup("Ada", "ada@uni.edu", "Seller")

	rec := e.do(http.MethodPut, "/api/services/"+ids["braids"], map[string]interface{}{
		"title": "Hair", "description": "Box braids", "linkupPrice": 4500,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodDelete, "/api/services/"+ids["laptop"], nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMyServices(t *testing.T) {
	e := newTestEnv(t)
	seedListings(e)
	token := e.signup("Ada", "ada@uni.edu", "Seller")
	e.do(http.MethodPost, "/api/services", map[string]interface{}{
		"title": "Tutoring", "description": "Calculus", "linkupPrice": 5000,
	}, token)

	rec := e.do(http.MethodGet, "/api/services/mine", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var services []domain.Service
	decodeData(t, rec, &services)
	titles := []string{}
	for _, s := range services {
		titles = append(titles, s.Title)
	}
	assert.ElementsMatch(t, []string{"Hair", "Tutoring"}, titles)

	rec = e.do(http.MethodGet, "/api/services/mine", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExportServices(t *testing.T) {
	e := newTestEnv(t)
	seedListings(e)

	rec := e.do(http.MethodGet, "/api/services/export?sort=price_asc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,title,seller,price"))
	assert.Contains(t, lines[1], "Hair")
	assert.Contains(t, lines[3], "Photography")
}
