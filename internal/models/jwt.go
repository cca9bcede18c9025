package models

import "time"

// AdminClaims represents the claims extracted from an admin API token
type AdminClaims struct {
	Subject   string    `json:"sub"` // Operator the token was minted for
	TokenID   string    `json:"jti"`
	Issuer    string    `json:"iss"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
