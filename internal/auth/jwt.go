package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "property-shares"

type Claims struct {
	HolderID string `json:"holder_id"`
	// Service marks tokens minted for internal processes such as the
	// settlement worker.
	Service bool `json:"service,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a token for holderID valid for expiration (24h when <= 0).
func GenerateJWT(secret, holderID string, service bool, expiration time.Duration) (string, error) {
	if holderID == "" {
		return "", errors.New("empty holder id")
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	now := time.Now()
	claims := Claims{
		HolderID: holderID,
		Service:  service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   holderID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(secret string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.HolderID == "" {
		return nil, fmt.Errorf("token has no holder")
	}
	return claims, nil
}
