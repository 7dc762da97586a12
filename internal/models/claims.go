package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the session identity issued by the auth collaborator.
// The wallet core trusts a validly signed token as already authenticated.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
