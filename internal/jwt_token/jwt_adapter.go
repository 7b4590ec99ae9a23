package jwttoken

import (
	authmw "storefront/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets RequireAuth validate bearer credentials with a
// JWTService without the middleware importing this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

// ValidateToken returns the caller identity RequireAuth stores on the request.
func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    claims.ID,
	}, nil
}
