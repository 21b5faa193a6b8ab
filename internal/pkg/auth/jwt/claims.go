package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims the relay accepts as proof of identity.
type Payload struct {
	// StandardClaims carries expiry, issue time and issuer.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric account id of the token holder.
	UserID int64 `json:"user_id"`

	// Username is the display name of the token holder.
	Username string `json:"username"`
}
