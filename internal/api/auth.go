package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/linkupcampus/linkup/internal/app"
	"github.com/linkupcampus/linkup/internal/auth"
	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/internal/webserver"
	"go.uber.org/zap"
)

const defaultIntent = "Marketplace"

type signupPayload struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	UserType string `json:"userType" validate:"omitempty,max=20"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	UserType     string `json:"userType"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      sessionUser `json:"user"`
}

// registerAuthRoutes registers account routes
func registerAuthRoutes() {
	webserver.ApiPOST("/auth/signup", signup)
	webserver.ApiPOST("/auth/login", login)
	webserver.ApiGET("/auth/me", me, webserver.RequireAuth())
}

func newSession(c echo.Context, u *domain.User) (*session, error) {
	token, expires, err := GetAppContext(c).Tokens().Issue(u)
	if err != nil {
		return nil, err
	}
	return &session{
		Token:     token,
		ExpiresAt: expires,
		User: sessionUser{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			UserType:     string(u.UserType),
			ProfileImage: u.ProfileImage,
		},
	}, nil
}

func signup(c echo.Context) error {
	var payload signupPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse signup parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	userType, err := domain.ParseUserType(payload.UserType)
	if err != nil {
		return failErr(c, err)
	}

	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	if _, err := appCtx.Users().FindByEmail(ctx, payload.Email); err == nil {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists", nil)
	} else if domain.KindOf(err) != domain.KindNotFound {
		return failErr(c, err)
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return failErr(c, err)
	}
	user, err := appCtx.Users().Create(ctx, &domain.User{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: hash,
		UserType: userType,
		Intent:   defaultIntent,
	})
	if err != nil {
		return failErr(c, err)
	}

	sess, err := newSession(c, user)
	if err != nil {
		return failErr(c, err)
	}
	appCtx.Publish(app.Event{
		Action: domain.ActionSignup,
		Actor:  user.Email,
		IP:     c.RealIP(),
		Target: user.ID,
		Detail: string(user.UserType),
		User:   user,
	})
	return created(c, sess)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "MISSING_CREDENTIALS", "Email and password are required", nil)
	}

	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	user, err := appCtx.Users().FindByEmail(ctx, payload.Email)
	if domain.KindOf(err) == domain.KindNotFound {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return failErr(c, err)
	}

	valid, rehash := auth.CheckPassword(user.Password, payload.Password)
	if !valid {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if rehash {
		if hash, err := auth.HashPassword(payload.Password); err == nil {
			if err := appCtx.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
				zap.L().Warn("password upgrade failed", zap.String("user", user.ID), zap.Error(err))
			}
		}
	}

	sess, err := newSession(c, user)
	if err != nil {
		return failErr(c, err)
	}
	appCtx.Publish(app.Event{Action: domain.ActionLogin, Actor: user.Email, IP: c.RealIP(), Target: user.ID})
	return ok(c, sess)
}

func me(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	}
	data := map[string]interface{}{
		"id":       claims.Subject,
		"name":     claims.Name,
		"email":    claims.Email,
		"userType": claims.UserType,
	}
	if claims.ExpiresAt != nil {
		data["expires_at"] = claims.ExpiresAt.Time
	}
	return ok(c, data)
}
