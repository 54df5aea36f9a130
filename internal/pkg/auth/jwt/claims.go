package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of a chat session token.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, which drive token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the authenticated user's id. It is the only identity the realtime core trusts.
	ID string `json:"id"`

	// Username is carried for logging and display; it is never used for authorization.
	Username string `json:"username"`
}
