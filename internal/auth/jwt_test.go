package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("secret", "alice", false, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.HolderID != "alice" || claims.Service {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseJWTRejects(t *testing.T) {
	valid, _ := GenerateJWT("secret", "alice", true, time.Hour)
	expired := signed(t, Claims{
		HolderID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	foreign := signed(t, Claims{
		HolderID:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	anonymous := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}})

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"expired", "secret", expired},
		{"foreign issuer", "secret", foreign},
		{"no holder", "secret", anonymous},
		{"garbage", "secret", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.secret, tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := GenerateJWT("secret", "", false, time.Hour); err == nil {
		t.Error("expected error for empty holder")
	}
}

func signed(t *testing.T, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}
