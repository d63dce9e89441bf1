package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// UserStore resolves a user id to the stored user. *Repository implements it.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Service interface {
	// ValidateToken verifies an HS256 bearer token and returns its subject.
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
	// Authenticate validates the token and loads the user it names.
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type service struct {
	users  UserStore
	secret []byte
}

func NewService(users UserStore, secret string) *service {
	return &service{users: users, secret: []byte(secret)}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)
var _ UserStore = (*Repository)(nil)

type claims struct {
	jwt.RegisteredClaims
	MobileNumber string `json:"mobile_number,omitempty"`
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	return id, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, id)
}
