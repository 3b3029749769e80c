// Package auth implements registration, credential checking and JWT
// issue/refresh/parse. It is plumbing around the rest of the system: the
// only fact the other components consume is the Session it produces.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// ErrInvalidCredentials is returned on login with an unknown email or a
// wrong password. It deliberately carries no detail about which.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials represents the input for registration
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Token is the login response payload.
type Token struct {
	AccessToken string
	UserID      uuid.UUID
	Username    string
	Email       string
}

type claims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsDataAdmin bool   `json:"is_data_admin"`
}

// Service handles authentication operations
type Service struct {
	UserRepo domain.UserRepository
	Log      *logrus.Logger

	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth Service instance
func NewService(userRepo domain.UserRepository, log *logrus.Logger, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		UserRepo: userRepo,
		Log:      log,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Register creates a regular user account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, cred Credentials) (*domain.User, error) {
	return s.register(ctx, cred, false)
}

// RegisterAdmin creates an account holding the data-admin capability.
func (s *Service) RegisterAdmin(ctx context.Context, cred Credentials) (*domain.User, error) {
	return s.register(ctx, cred, true)
}

func (s *Service) register(ctx context.Context, cred Credentials, dataAdmin bool) (*domain.User, error) {
	if cred.Username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrInvalidValue)
	}
	if cred.Email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidValue)
	}
	if len(cred.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidValue)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     cred.Username,
		Email:        cred.Email,
		PasswordHash: string(hash),
		IsDataAdmin:  dataAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"username": user.Username, "data_admin": dataAdmin}).Info("user registered")
	return user, nil
}

// Login checks the credentials and issues a signed access token carrying the
// user's identity and data-admin capability.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.UserRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.Log.WithField("username", user.Username).Info("user logged in")
	return &Token{
		AccessToken: signed,
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
	}, nil
}

// Refresh validates an existing token and reissues a fresh one against the
// user's current state, so a revoked admin flag does not survive a refresh.
func (s *Service) Refresh(ctx context.Context, tokenString string) (string, error) {
	session, err := s.ParseToken(tokenString)
	if err != nil {
		return "", err
	}
	user, err := s.UserRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return "", err
	}
	return s.issue(user)
}

// ParseToken validates a signed token and extracts the session it carries.
func (s *Service) ParseToken(tokenString string) (domain.Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Session{}, fmt.Errorf("%w: invalid token", domain.ErrPermissionDenied)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: invalid token subject", domain.ErrPermissionDenied)
	}
	return domain.Session{
		UserID:      userID,
		Username:    c.Username,
		IsDataAdmin: c.IsDataAdmin,
	}, nil
}

func (s *Service) issue(user *domain.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		Username:    user.Username,
		Email:       user.Email,
		IsDataAdmin: user.IsDataAdmin,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
