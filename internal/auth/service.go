package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dohnagen/sheetgen/internal/typeid"
)

// AnonymousOwnerID owns everything done without a token when anonymous
// access is allowed.
const AnonymousOwnerID = "local_user"

const DefaultTokenTTL = 30 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	jwtSecret      []byte
	ttl            time.Duration
	allowAnonymous bool
	now            func() time.Time
}

func NewService(jwtSecret string, allowAnonymous bool) *Service {
	return &Service{
		jwtSecret:      []byte(jwtSecret),
		ttl:            DefaultTokenTTL,
		allowAnonymous: allowAnonymous,
		now:            time.Now,
	}
}

type Session struct {
	Token   string `json:"token"`
	OwnerID string `json:"ownerId"`
}

// NewOwner mints a fresh owner id and a token for it.
func (s *Service) NewOwner() (*Session, error) {
	return s.Issue(typeid.NewOwnerID())
}

// Issue signs a token for an existing owner.
func (s *Service) Issue(ownerID string) (*Session, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": ownerID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: signed, OwnerID: ownerID}, nil
}

func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	ownerID, ok := claims["sub"].(string)
	if !ok || ownerID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return ownerID, nil
}
