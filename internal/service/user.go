package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const minPasswordLen = 8

// RegistrationKind selects how a new account is created.
type RegistrationKind int

const (
	CustomerCreation RegistrationKind = iota + 1
	AdminUpgradeRequest
)

func RegistrationKindFor(role string) (RegistrationKind, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", models.RoleCustomer:
		return CustomerCreation, nil
	case models.RoleAdmin:
		return AdminUpgradeRequest, nil
	}
	return 0, fmt.Errorf("unknown role %q: %w", role, ErrValidation)
}

type UserService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	AccessTTL time.Duration
}

type LoginResult struct {
	AccessToken string
	AccessExp   time.Time
	IsAdmin     bool
}

func (s *UserService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.register")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", ErrValidation)
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, fmt.Errorf("first and last name are required: %w", ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrValidation)
	}

	kind, err := RegistrationKindFor(req.Role)
	if err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
	}
	switch kind {
	case CustomerCreation:
	case AdminUpgradeRequest:
		// admins are promoted by an existing admin, never self-granted
		user.AdminRequested = true
	}

	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID, "admin_requested", user.AdminRequested)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrUnauthorized
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)
	token, err := tokens.NewAccessToken(user.ID, user.Role, exp, s.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: token,
		AccessExp:   exp,
		IsAdmin:     user.Role == models.RoleAdmin,
	}, nil
}

func (s *UserService) SetRole(ctx context.Context, id uint, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != models.RoleCustomer && role != models.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrValidation)
	}

	user, err := s.Repo.SetUserRole(ctx, id, role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, err
}
