package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/auth"
	"pulgax-store/internal/models"
	"pulgax-store/internal/repository"
)

// ErrGoogleDisabled is returned by GoogleLogin when no client id is configured.
var ErrGoogleDisabled = errors.New("google sign-in is not configured")

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthenticated)

type AdminSession struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	Admin       models.AdminProfile `json:"admin"`
}

type CustomerSession struct {
	AccessToken string                 `json:"access_token"`
	TokenType   string                 `json:"token_type"`
	Customer    models.CustomerProfile `json:"customer"`
}

type AuthService struct {
	admins      repository.AdminRepository
	customers   repository.CustomerRepository
	tokens      *auth.TokenService
	google      auth.GoogleVerifier
	singleAdmin bool
	logger      *logrus.Entry
	now         func() time.Time
}

// NewAuthService wires the identity operations. google may be nil, which
// disables Google sign-in.
func NewAuthService(
	admins repository.AdminRepository,
	customers repository.CustomerRepository,
	tokens *auth.TokenService,
	google auth.GoogleVerifier,
	singleAdmin bool,
	logger *logrus.Entry,
) *AuthService {
	return &AuthService{
		admins:      admins,
		customers:   customers,
		tokens:      tokens,
		google:      google,
		singleAdmin: singleAdmin,
		logger:      logger.WithField("component", "auth_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ============== ADMINS ==============

// RegisterAdmin creates an admin account. In single-admin mode only the first
// registration succeeds.
func (s *AuthService) RegisterAdmin(ctx context.Context, req models.RegisterAdminRequest) (*AdminSession, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    s.now(),
	}

	if s.singleAdmin {
		err = s.admins.CreateSoleAdmin(ctx, admin)
	} else {
		err = s.admins.CreateAdmin(ctx, admin)
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithField("admin_id", admin.ID).Info("Admin registered")
	return s.adminSession(admin)
}

func (s *AuthService) LoginAdmin(ctx context.Context, req models.LoginRequest) (*AdminSession, error) {
	admin, err := s.admins.GetAdminByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		s.logger.WithField("admin_id", admin.ID).Warn("Admin login with wrong password")
		return nil, errBadCredentials
	}
	return s.adminSession(admin)
}

func (s *AuthService) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	return s.admins.GetAdmin(ctx, id)
}

func (s *AuthService) adminSession(admin *models.Admin) (*AdminSession, error) {
	token, err := s.tokens.Issue(auth.Principal{ID: admin.ID, Email: admin.Email, Role: auth.RoleAdmin})
	if err != nil {
		return nil, err
	}
	return &AdminSession{AccessToken: token, TokenType: "bearer", Admin: admin.Profile()}, nil
}

// ============== CUSTOMERS ==============

func (s *AuthService) RegisterCustomer(ctx context.Context, req models.RegisterCustomerRequest) (*CustomerSession, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		AuthProvider: models.AuthProviderPassword,
		CreatedAt:    s.now(),
	}
	if err := s.customers.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.WithField("customer_id", customer.ID).Info("Customer registered")
	return s.customerSession(customer)
}

func (s *AuthService) LoginCustomer(ctx context.Context, req models.LoginRequest) (*CustomerSession, error) {
	customer, err := s.customers.GetCustomerByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if customer.PasswordHash == "" || !auth.CheckPassword(customer.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}
	return s.customerSession(customer)
}

// GoogleLogin verifies a Google ID token and signs the customer in, creating or
// linking the account by email on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, credential string) (*CustomerSession, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	identity, err := s.google.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	customer, err := s.customers.GetCustomerByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		customer = &models.Customer{
			ID:           uuid.NewString(),
			Email:        email,
			Name:         identity.Name,
			GoogleID:     identity.Subject,
			AuthProvider: models.AuthProviderGoogle,
			CreatedAt:    s.now(),
		}
		if err := s.customers.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
		s.logger.WithField("customer_id", customer.ID).Info("Customer registered with Google")
	case err != nil:
		return nil, err
	case customer.GoogleID == "":
		customer.GoogleID = identity.Subject
		if err := s.customers.UpdateCustomer(ctx, customer); err != nil {
			return nil, err
		}
	case customer.GoogleID != identity.Subject:
		return nil, fmt.Errorf("%w: email is linked to a different google account", apperrors.ErrUnauthenticated)
	}
	return s.customerSession(customer)
}

func (s *AuthService) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	return s.customers.GetCustomer(ctx, id)
}

func (s *AuthService) UpdateCustomerAddress(ctx context.Context, id string, addr models.Address) (*models.Customer, error) {
	customer, err := s.customers.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.Address = &addr
	if err := s.customers.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *AuthService) customerSession(c *models.Customer) (*CustomerSession, error) {
	token, err := s.tokens.Issue(auth.Principal{ID: c.ID, Email: c.Email, Role: auth.RoleCustomer})
	if err != nil {
		return nil, err
	}
	return &CustomerSession{AccessToken: token, TokenType: "bearer", Customer: c.Profile()}, nil
}

// Authenticate checks a bearer token. Tokens whose principal was deleted are
// rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	p, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case auth.RoleAdmin:
		_, err = s.admins.GetAdmin(ctx, p.ID)
	case auth.RoleCustomer:
		_, err = s.customers.GetCustomer(ctx, p.ID)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", apperrors.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
