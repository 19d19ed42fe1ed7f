package dto

import "time"

// SignInRequest carries admin credentials.
type SignInRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// SignInResponse returns the bearer token issued for the session.
type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
