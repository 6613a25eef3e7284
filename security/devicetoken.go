package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "clockin"
	Audience = "clockin-devices"
)

// DeviceIdentity is the kiosk or scanner a token is issued to.
type DeviceIdentity struct {
	DeviceID string
	Name     string
	Site     string
}

type Identity struct {
	DeviceID string `json:"sid"`
	Name     string `json:"unique_name"`
	Site     string `json:"site,omitempty"`
}

// DeviceClaims includes Identity and standard JWT claims
type DeviceClaims struct {
	Identity
	jwt.RegisteredClaims
}

func DecodeSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	return secret, nil
}

func CreateDeviceToken(identity *DeviceIdentity, base64Secret string, expiresIn time.Duration) (string, error) {
	secretBytes, err := DecodeSecret(base64Secret)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := DeviceClaims{
		Identity: Identity{
			DeviceID: identity.DeviceID,
			Name:     identity.Name,
			Site:     identity.Site,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   identity.DeviceID,
			Audience:  []string{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secretBytes)
}

// ParseDeviceToken verifies signature, expiry, issuer and audience.
func ParseDeviceToken(tokenStr string, secret []byte) (*DeviceClaims, error) {
	claims := &DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
