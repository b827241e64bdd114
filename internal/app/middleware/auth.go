package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"

	"ringi/internal/app/config"
	"ringi/internal/app/ds"
	"ringi/internal/app/dto"
)

const (
	ModeJWT    = "jwt"
	ModeHeader = "header"
	ModeDev    = "dev"
)

// Blacklist - отозванные токены (redis.Client)
type Blacklist interface {
	// CheckJWTInBlacklist возвращает nil, если токен отозван
	CheckJWTInBlacklist(ctx context.Context, jwtStr string) error
}

type AuthMiddleware struct {
	Blacklist Blacklist
	Config    *config.Config
}

func NewAuthMiddleware(blacklist Blacklist, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		Blacklist: blacklist,
		Config:    cfg,
	}
}

// WithAuthCheck определяет e-mail пользователя и кладёт его в контекст.
// Личность никогда не берётся из тела запроса.
func (am *AuthMiddleware) WithAuthCheck() gin.HandlerFunc {
	return gin.HandlerFunc(func(gCtx *gin.Context) {
		var (
			email string
			err   error
		)
		switch am.Config.Auth.Mode {
		case ModeHeader:
			email = gCtx.GetHeader(am.Config.Auth.Header)
		case ModeDev:
			email = am.Config.Auth.DevUser
		default:
			email, err = am.fromJWT(gCtx)
		}
		if err == nil {
			email, err = validEmail(email)
		}
		if err != nil {
			logrus.Warnf("auth: %s %s: %v", gCtx.Request.Method, gCtx.Request.URL.Path, err)
			gCtx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Status:  "fail",
				Code:    "unauthorized",
				Message: "требуется авторизация",
			})
			return
		}

		// Сохраняем данные пользователя в контексте для последующего использования
		setUser(gCtx, &CurrentUser{Email: email, AuthMode: am.Config.Auth.Mode})

		gCtx.Next()
	})
}

func (am *AuthMiddleware) fromJWT(gCtx *gin.Context) (string, error) {
	// Проверяем JWT токен из заголовка Authorization
	jwtStr := BearerToken(gCtx)
	if jwtStr == "" {
		return "", errors.New("authorization header missing")
	}

	// Проверяем токен в blacklist Redis
	if am.Blacklist != nil {
		if err := am.Blacklist.CheckJWTInBlacklist(gCtx.Request.Context(), jwtStr); err == nil {
			return "", errors.New("token is revoked")
		}
	}

	claims, err := ParseJWT(jwtStr, am.Config.JWT)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// ParseJWT парсит и валидирует JWT токен
func ParseJWT(tokenString string, cfg config.JWTConfig) (*ds.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ds.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if cfg.SigningMethod != nil && token.Method.Alg() != cfg.SigningMethod.Alg() {
			return nil, errors.New("unexpected signing method " + token.Method.Alg())
		}
		return []byte(cfg.Token), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ds.JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// BearerToken - токен из Authorization без префикса "Bearer "
func BearerToken(gCtx *gin.Context) string {
	jwtStr := gCtx.GetHeader("Authorization")
	if len(jwtStr) > 7 && strings.EqualFold(jwtStr[:7], "Bearer ") {
		jwtStr = jwtStr[7:]
	}
	return strings.TrimSpace(jwtStr)
}

func validEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("identity is empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("identity is not an e-mail address")
	}
	return email, nil
}
