package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Manager struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (m *Manager) NewAccessToken(p Principal) (string, error) {
	if !p.Role.Valid() || p.UserID == "" {
		return "", errors.New("invalid principal")
	}
	now := time.Now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    m.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Principal resolves a token into the caller it identifies.
func (m *Manager) Principal(tokenStr string) (Principal, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return Principal{}, err
	}
	p := Principal{UserID: claims.Subject, Role: Role(claims.Role)}
	if p.UserID == "" || !p.Role.Valid() {
		return Principal{}, errors.New("token carries no valid principal")
	}
	return p, nil
}
