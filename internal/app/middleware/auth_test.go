package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"ringi/internal/app/config"
	"ringi/internal/app/ds"
)

const testSecret = "test-secret"

type fakeBlacklist map[string]bool

func (b fakeBlacklist) CheckJWTInBlacklist(_ context.Context, token string) error {
	if b[token] {
		return nil
	}
	return context.Canceled // любое не-nil значение: токена нет
}

func signToken(t *testing.T, email, secret string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(ttl).Unix()},
		Email:          email,
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter(cfg *config.Config, bl Blacklist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", NewAuthMiddleware(bl, cfg).WithAuthCheck(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserFromContext(c).Email)
	})
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jwtConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{Mode: ModeJWT},
		JWT:  config.JWTConfig{Token: testSecret, SigningMethod: jwt.SigningMethodHS256},
	}
}

func TestAuth_JWT(t *testing.T) {
	bl := fakeBlacklist{}
	r := newRouter(jwtConfig(), bl)

	w := do(r, "Authorization", "Bearer "+signToken(t, "Alice@Example.com", testSecret, time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice@example.com", w.Body.String())

	w = do(r, "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"code":"unauthorized"`)

	w = do(r, "Authorization", "Bearer "+signToken(t, "alice@example.com", "other", time.Hour))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Authorization", "Bearer "+signToken(t, "alice@example.com", testSecret, -time.Minute))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Authorization", "Bearer "+signToken(t, "not-an-email", testSecret, time.Hour))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	revoked := signToken(t, "alice@example.com", testSecret, time.Hour)
	bl[revoked] = true
	w = do(r, "Authorization", "Bearer "+revoked)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_RejectsOtherSigningMethod(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, ds.JWTClaims{Email: "alice@example.com"})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseJWT(s, jwtConfig().JWT)
	require.Error(t, err)
}

func TestAuth_Header(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Mode: ModeHeader, Header: "X-Forwarded-Email"}}
	r := newRouter(cfg, nil)

	w := do(r, "X-Forwarded-Email", "bob@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bob@example.com", w.Body.String())

	w = do(r, "X-Forwarded-Email", "Bob <bob@example.com>")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_Dev(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Mode: ModeDev, DevUser: "dev@example.com"}}
	w := do(newRouter(cfg, nil), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "dev@example.com", w.Body.String())
}

func TestGetUserFromContext_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Nil(t, GetUserFromContext(c))
}
