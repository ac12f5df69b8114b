package model

import "github.com/golang-jwt/jwt/v5"

type AccessClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type StoredRefreshToken struct {
	UserID       string `firestore:"userid"`
	RefreshToken string `firestore:"refreshtoken"` // bcrypt hash of sha256
	CreatedAt    int64  `firestore:"createdat"`    // unix seconds
	Revoked      bool   `firestore:"revoked"`
	ExpiresIn    int64  `firestore:"expiresin"` // seconds until expiry
}
