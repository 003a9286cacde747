package types

import "github.com/golang-jwt/jwt/v5"

// Claims are the custom claims carried by the access token.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}
