package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JwtCustomClaim mirrors the session the training backend issues at login:
// user id, role string and the user's home state.
type JwtCustomClaim struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	StateId string `json:"state"`
	jwt.StandardClaims
}

// ErrMissingSecret is returned while API_SECRET is unset. Sessions are
// issued by the training backend, so there is no usable default key.
var ErrMissingSecret = errors.New("API_SECRET is not set")

func getJwtSecret() ([]byte, error) {
	secret := strings.TrimSpace(os.Getenv("API_SECRET"))
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return []byte(secret), nil
}

func JwtGenerate(userID, role, stateId string, lifespan time.Duration) (string, error) {
	if lifespan <= 0 {
		return "", errors.New("token lifespan must be positive")
	}
	secret, err := getJwtSecret()
	if err != nil {
		return "", err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:      userID,
		Role:    role,
		StateId: stateId,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(lifespan).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})
	return t.SignedString(secret)
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	secret, err := getJwtSecret()
	if err != nil {
		return nil, err
	}
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claim, nil
}
