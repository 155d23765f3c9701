package service

import (
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrValidation      = errors.New("validation")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("invalid credentials")
	ErrDataIntegrity   = errors.New("data integrity")
	ErrUpstream        = errors.New("upstream failure")
	ErrMissingMetadata = errors.New("missing correlation metadata")
)

// Principal is the verified caller, taken from the access token.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}
