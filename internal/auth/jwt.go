package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// Claims identifies the principal behind a request. Kind separates the
// customer and admin hierarchies; Status is only meaningful for admins.
type Claims struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	Kind        string    `json:"kind"`
	Role        string    `json:"role"`
	Status      string    `json:"status,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the principal reference; role and status are
// re-read from the database on refresh.
type RefreshClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, principalID uuid.UUID, kind, role, status string) (string, error) {
	claims := Claims{
		PrincipalID: principalID,
		Kind:        kind,
		Role:        role,
		Status:      status,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func GenerateRefreshToken(secret string, principalID uuid.UUID, kind string) (string, error) {
	claims := RefreshClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PrincipalID == uuid.Nil {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ValidateRefreshToken returns the principal ID and kind of a refresh token.
func ValidateRefreshToken(secret, tokenStr string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, keyFunc(secret))
	if err != nil {
		return uuid.Nil, "", err
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid token subject: %w", err)
	}
	return id, claims.Kind, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}
