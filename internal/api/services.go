package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/marketplace"
	"github.com/linkupcampus/linkup/internal/repository"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/spf13/cast"
)

type servicePayload struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"required,max=5000"`
	LinkupPrice interface{} `json:"linkupPrice" validate:"required"`
	VendorPrice interface{} `json:"vendorPrice"`
	WhatsApp    string      `json:"whatsapp" validate:"omitempty,max=50"`
	Telegram    string      `json:"telegram" validate:"omitempty,max=100"`
	Images      []string    `json:"images" validate:"omitempty,dive,url"`
}

// serviceRow is one line of the CSV export.
type serviceRow struct {
	ID          string  `csv:"id"`
	Title       string  `csv:"title"`
	Seller      string  `csv:"seller"`
	Price       float64 `csv:"price"`
	VendorPrice string  `csv:"vendor_price"`
	Rating      float64 `csv:"rating"`
	Reviews     int     `csv:"reviews"`
	Verified    bool    `csv:"verified"`
	Contact     string  `csv:"whatsapp"`
	Telegram    string  `csv:"telegram"`
	Created     string  `csv:"created"`
}

var priceCleaner = strings.NewReplacer("₦", "", ",", "", " ", "")

// registerServiceRoutes registers listing routes
func registerServiceRoutes() {
	webserver.ApiGET("/services", listServices)
	webserver.ApiGET("/services/categories", listCategories)
	webserver.ApiGET("/services/mine", myServices, webserver.RequireAuth())
	webserver.ApiGET("/services/export", exportServices)
	webserver.ApiGET("/services/:id", getService)
	webserver.ApiPOST("/services", createService, webserver.RequireAuth())
	webserver.ApiPUT("/services/:id", updateService, webserver.RequireAuth())
	webserver.ApiDELETE("/services/:id", deleteService, webserver.RequireAuth())
}

func parseCriteria(c echo.Context) (marketplace.Criteria, error) {
	price, err := marketplace.ParsePriceBucket(c.QueryParam("price"))
	if err != nil {
		return marketplace.Criteria{}, err
	}
	sortKey, err := marketplace.ParseSortKey(c.QueryParam("sort"))
	if err != nil {
		return marketplace.Criteria{}, err
	}
	return marketplace.Criteria{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Price:    price,
		Sort:     sortKey,
		Seller:   strings.TrimSpace(c.QueryParam("seller")),
	}, nil
}

// filteredListings applies the query criteria to the cached listings.
func filteredListings(c echo.Context) ([]domain.Service, error) {
	criteria, err := parseCriteria(c)
	if err != nil {
		return nil, err
	}
	services, err := GetAppContext(c).Listings().Snapshot(c.Request().Context())
	if err != nil {
		return nil, err
	}
	return marketplace.Apply(services, criteria), nil
}

func listServices(c echo.Context) error {
	page, pageSize := parsePagination(c)
	services, err := filteredListings(c)
	if err != nil {
		return failErr(c, err)
	}
	return paged(c, marketplace.Page(services, page, pageSize), int64(len(services)), page, pageSize)
}

func listCategories(c echo.Context) error {
	services, err := GetAppContext(c).Listings().Snapshot(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	categories := marketplace.Categories(services)
	if categories == nil {
		categories = []string{}
	}
	return ok(c, categories)
}

func myServices(c echo.Context) error {
	claims := currentClaims(c)
	services, err := GetAppContext(c).Listings().Snapshot(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	mine := make([]domain.Service, 0)
	for _, s := range services {
		if s.OwnedBy(claims.Email, claims.Name) {
			mine = append(mine, s)
		}
	}
	return ok(c, mine)
}

func exportServices(c echo.Context) error {
	services, err := filteredListings(c)
	if err != nil {
		return failErr(c, err)
	}
	rows := make([]*serviceRow, 0, len(services))
	for _, s := range services {
		row := &serviceRow{
			ID:       s.ID,
			Title:    s.Title,
			Seller:   s.Name,
			Price:    s.Price,
			Rating:   s.MeanRating(),
			Reviews:  s.NumReviews(),
			Verified: s.Verified,
			Contact:  s.Contact,
			Telegram: s.Telegram,
		}
		if s.VendorPrice != nil {
			row.VendorPrice = cast.ToString(*s.VendorPrice)
		}
		if !s.CreatedTime.IsZero() {
			row.Created = s.CreatedTime.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export services", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="services.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

func getService(c echo.Context) error {
	svc, err := GetAppContext(c).Services().GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, svc)
}

// toPrice accepts numbers and numeric strings such as "₦5,000".
func toPrice(v interface{}) (float64, error) {
	if s, isStr := v.(string); isStr {
		v = priceCleaner.Replace(s)
	}
	return cast.ToFloat64E(v)
}

func (p servicePayload) toInput(maxImages int) (repository.ServiceInput, error) {
	in := repository.ServiceInput{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Contact:     strings.TrimSpace(p.WhatsApp),
		Telegram:    strings.TrimPrefix(strings.TrimSpace(p.Telegram), "@"),
		Images:      p.Images,
	}
	price, err := toPrice(p.LinkupPrice)
	if err != nil || price <= 0 {
		return in, domain.ErrValidation("linkupPrice must be a positive number")
	}
	in.Price = price
	if p.VendorPrice != nil && cast.ToString(p.VendorPrice) != "" {
		vendor, err := toPrice(p.VendorPrice)
		if err != nil || vendor < 0 {
			return in, domain.ErrValidation("vendorPrice must be a non-negative number")
		}
		if vendor > 0 {
			in.VendorPrice = &vendor
		}
	}
	if maxImages > 0 && len(p.Images) > maxImages {
		return in, domain.ErrValidation("at most %d images are allowed", maxImages)
	}
	if in.Title == "" || in.Description == "" {
		return in, domain.ErrValidation("title and description are required")
	}
	return in, nil
}

// bindService decodes and validates the listing body. Errors are either
// validator.ValidationErrors or domain validation errors.
func bindService(c echo.Context) (repository.ServiceInput, error) {
	var payload servicePayload
	if err := c.Bind(&payload); err != nil {
		return repository.ServiceInput{}, domain.ErrValidation("Unable to parse service parameters")
	}
	if err := c.Validate(&payload); err != nil {
		return repository.ServiceInput{}, err
	}
	return payload.toInput(GetAppContext(c).Config().Cloudinary.MaxImages)
}

func createService(c echo.Context) error {
	in, err := bindService(c)
	if err != nil {
		return handleValidationError(c, err)
	}
	claims := currentClaims(c)
	svc, err := GetAppContext(c).Services().Create(c.Request().Context(), claims.Name, claims.Email, in)
	if err != nil {
		return failErr(c, err)
	}
	publish(c, domain.ActionServiceCreate, svc.ID, svc.Title)
	return created(c, svc)
}

// ownedService loads a service and checks that the caller may modify it.
func ownedService(c echo.Context) (*domain.Service, error) {
	svc, err := GetAppContext(c).Services().GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	claims := currentClaims(c)
	if !svc.OwnedBy(claims.Email, claims.Name) {
		return nil, domain.ErrForbidden("you can only modify your own services")
	}
	return svc, nil
}

func updateService(c echo.Context) error {
	svc, err := ownedService(c)
	if err != nil {
		return failErr(c, err)
	}
	in, err := bindService(c)
	if err != nil {
		return handleValidationError(c, err)
	}
	updated, err := GetAppContext(c).Services().Update(c.Request().Context(), svc.ID, in)
	if err != nil {
		return failErr(c, err)
	}
	publish(c, domain.ActionServiceUpdate, svc.ID, updated.Title)
	return ok(c, updated)
}

func deleteService(c echo.Context) error {
	svc, err := ownedService(c)
	if err != nil {
		return failErr(c, err)
	}
	if err := GetAppContext(c).Services().Delete(c.Request().Context(), svc.ID); err != nil {
		return failErr(c, err)
	}
	publish(c, domain.ActionServiceDelete, svc.ID, fmt.Sprintf("%s (%s)", svc.Title, svc.Name))
	return ok(c, map[string]interface{}{"id": svc.ID})
}
