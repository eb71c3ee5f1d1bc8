package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/rating"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/spf13/cast"
)

type ratePayload struct {
	ServiceID string      `json:"serviceId"`
	Rating    interface{} `json:"rating"`
	Name      string      `json:"name" validate:"omitempty,max=100"`
	Text      string      `json:"text" validate:"omitempty,max=2000"`
}

// registerRatingRoutes registers the review route
func registerRatingRoutes() {
	webserver.ApiPOST("/services/rate", rateService)
}

func rateService(c echo.Context) error {
	var payload ratePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse rating parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	// only JSON numbers count; "5" or true are rejected
	value, isNumber := payload.Rating.(float64)
	if !isNumber || rating.Validate(payload.ServiceID, value) != nil {
		return fail(c, http.StatusBadRequest, "INVALID_RATING", "Invalid service ID or rating (must be 1-5)", nil)
	}

	result, err := GetAppContext(c).Ratings().Submit(c.Request().Context(), rating.Submission{
		ServiceID: strings.TrimSpace(payload.ServiceID),
		Rating:    value,
		Name:      strings.TrimSpace(payload.Name),
		Text:      strings.TrimSpace(payload.Text),
	})
	if err != nil {
		return failErr(c, err)
	}
	publish(c, domain.ActionServiceRate, result.ServiceID, cast.ToString(value))
	return ok(c, result)
}
