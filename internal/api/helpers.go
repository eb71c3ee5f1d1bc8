// Package api implements the marketplace HTTP handlers.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/app"
	"github.com/linkupcampus/linkup/internal/auth"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Response is the success envelope.
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta describes one page of a list.
type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{
		Data: data,
		Meta: &Meta{Total: total, Page: page, PageSize: pageSize},
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, webserver.ErrorResponse{Error: code, Message: message, Details: details})
}

// failErr renders a domain error with the status of its kind.
func failErr(c echo.Context, err error) error {
	msg := domain.MessageOf(err)
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
	case domain.KindUnauthorized:
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", msg, nil)
	case domain.KindForbidden:
		return fail(c, http.StatusForbidden, "FORBIDDEN", msg, nil)
	case domain.KindNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", msg, nil)
	case domain.KindConflict:
		return fail(c, http.StatusConflict, "CONFLICT", msg, nil)
	case domain.KindDependency:
		zap.L().Error("upstream failure", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "UPSTREAM_ERROR", msg, nil)
	}
	zap.L().Error("internal error", zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg, nil)
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
	}
	if domain.KindOf(err) != domain.KindInternal {
		return failErr(c, err)
	}
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
}

// parsePagination reads page and perPage with sane bounds.
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return page, perPage
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

// currentClaims returns the session of an authenticated request, nil
// otherwise.
func currentClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(webserver.ClaimsKey).(*auth.Claims)
	return claims
}

// publish emits an audit event for the current request.
func publish(c echo.Context, action, target, detail string) {
	ev := app.Event{Action: action, IP: c.RealIP(), Target: target, Detail: detail}
	if claims := currentClaims(c); claims != nil {
		ev.Actor = claims.Email
	}
	GetAppContext(c).Publish(ev)
}
