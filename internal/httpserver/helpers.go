package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

func principal(c echo.Context) (service.Principal, error) {
	id, role, ok := middleware.PrincipalFrom(c)
	if !ok {
		return service.Principal{}, errors.New("unauthorized")
	}
	return service.Principal{UserID: id, Role: role}, nil
}

func paramID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || n == 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return uint(n), nil
}

// statusFor maps service errors to a response code and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMissingMetadata):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUpstream):
		return http.StatusInternalServerError, "payment provider error"
	}
	return http.StatusInternalServerError, "internal error"
}
