package models

// ConvertClaims is the bearer token payload accepted by the convert endpoint
// when token authentication is enabled.
type ConvertClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
