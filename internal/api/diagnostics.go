package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/webserver"
	"github.com/linkupcampus/linkup/pkg/common"
	"github.com/linkupcampus/linkup/pkg/metrics"
)

const probeTimeout = 15 * time.Second

// registerDiagnosticsRoutes registers health and upstream checks
func registerDiagnosticsRoutes() {
	webserver.ApiGET("/health", health)
	webserver.ApiGET("/diagnostics/config", configStatus)
	webserver.ApiGET("/diagnostics/upstream", upstreamStatus)
	webserver.ApiGET("/diagnostics/audit", recentAudit, webserver.RequireAuth())
}

func presence(s string) string {
	if common.IsEmptyOrNA(s) {
		return "NOT SET"
	}
	return "SET"
}

func health(c echo.Context) error {
	listings := GetAppContext(c).Listings()
	data := map[string]interface{}{
		"status":   "ok",
		"time":     time.Now().Format(time.RFC3339),
		"listings": listings.Len(),
		"gauges":   metrics.Gauges(),
	}
	if at := listings.LoadedAt(); !at.IsZero() {
		data["listings_loaded_at"] = at.Format(time.RFC3339)
	}
	return ok(c, data)
}

// configStatus reports which credentials are configured, never their values.
func configStatus(c echo.Context) error {
	cfg := GetAppContext(c).Config()
	return ok(c, map[string]interface{}{
		"airtable": map[string]interface{}{
			"base_id":        common.MaskSecret(cfg.Airtable.BaseID),
			"token":          presence(cfg.Airtable.Token),
			"services_table": cfg.Airtable.ServicesTable,
			"users_table":    cfg.Airtable.UsersTable,
		},
		"cloudinary": map[string]interface{}{
			"cloud_name": common.IfEmptyStr(cfg.Cloudinary.CloudName, "NOT SET"),
			"api_key":    presence(cfg.Cloudinary.APIKey),
			"api_secret": presence(cfg.Cloudinary.APISecret),
			"folder":     cfg.Cloudinary.Folder,
		},
		"session_secret": presence(cfg.Web.Secret),
		"database":       cfg.Database.Enabled,
		"mail":           cfg.Mail.Enabled,
	})
}

func upstreamStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()
	status := GetAppContext(c).ProbeUpstream(ctx)
	if !status.Healthy() {
		return c.JSON(http.StatusBadGateway, Response{Data: status})
	}
	return ok(c, status)
}

// recentAudit lists the latest audit entries; empty without a database.
func recentAudit(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	logs, err := GetAppContext(c).Auditor().Recent(limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query audit log", err.Error())
	}
	return ok(c, logs)
}
