package scheduler

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TriggerClaims is embedded in the callback the external scheduler fires
// back at us. Signing it at registration time means a trigger request can
// be authenticated without any session state, and an expired token
// naturally fences off very stale callbacks.
type TriggerClaims struct {
	AppointmentID string `json:"appointment_id"`
	Kind          string `json:"kind"`
	jwt.RegisteredClaims
}

// MintTriggerToken signs a callback token valid until well past the
// tolerance window around fireAt.
func MintTriggerToken(secret string, appointmentID, kind string, fireAt time.Time, tolerance time.Duration) (string, error) {
	claims := TriggerClaims{
		AppointmentID: appointmentID,
		Kind:          kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(fireAt.Add(tolerance + time.Hour)),
			Subject:   appointmentID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign trigger token: %w", err)
	}
	return signed, nil
}

// ParseTriggerToken verifies the signature and expiry and returns the
// claims.
func ParseTriggerToken(secret, tokenString string) (*TriggerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TriggerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid trigger token: %w", err)
	}

	claims, ok := token.Claims.(*TriggerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid trigger token claims")
	}
	return claims, nil
}
