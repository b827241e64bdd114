package ds

import (
	"github.com/golang-jwt/jwt"
)

// Claims токена, выпущенного провайдером идентификации
type JWTClaims struct {
	jwt.StandardClaims
	Email string `json:"email"`
}
