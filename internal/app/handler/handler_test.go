package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"ringi/internal/app/config"
	"ringi/internal/app/ds"
	"ringi/internal/app/dto"
	"ringi/internal/app/idgen"
	"ringi/internal/app/lock"
	"ringi/internal/app/middleware"
	"ringi/internal/app/notify"
	"ringi/internal/app/sheet"
	"ringi/internal/app/workflow"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"

	userHeader = "X-Forwarded-Email"
)

type testServer struct {
	router *gin.Engine
	locker *lock.MemLocker
}

func newTestServer(t *testing.T, cfg *config.Config, revoker TokenRevoker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	locker := lock.NewMemLocker()
	book := &sheet.Book{
		Table:     sheet.NewMemTable(),
		Codec:     sheet.Codec{Layout: sheet.DefaultLayout(), Location: time.UTC},
		HeaderRow: true,
	}
	section := lock.NewSection(locker, time.Millisecond, 50*time.Millisecond)
	wf := workflow.NewService(book, section, idgen.New(), notify.Composer{}, notify.NewDispatcher(notify.LogChannel{}, 0), workflow.Options{})

	router := gin.New()
	h := NewHandler(wf, revoker, cfg)
	h.RegisterAPIRoutes(router, middleware.NewAuthMiddleware(nil, cfg))
	return &testServer{router: router, locker: locker}
}

func headerConfig() *config.Config {
	return &config.Config{Auth: config.AuthConfig{Mode: middleware.ModeHeader, Header: userHeader}}
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (s *testServer) create(t *testing.T, user, approver string) dto.ApprovalResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/approvals", user, gin.H{
		"title":    "Laptop",
		"approver": approver,
		"amount":   1000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.ApprovalResponse
	env := decode(t, w, &resp)
	require.Equal(t, "success", env.Status)
	return resp
}

func TestCreateApproval(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)

	// applicant в теле игнорируется
	w := s.do(t, http.MethodPost, "/api/approvals", alice, gin.H{
		"title":     "Laptop",
		"approver":  bob,
		"amount":    1000,
		"applicant": carol,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.ApprovalResponse
	decode(t, w, &resp)
	require.Equal(t, alice, resp.Applicant)
	require.Equal(t, "pending", resp.Status)
	require.Equal(t, 1000.0, resp.Amount)
}

func TestCreateApproval_BadRequests(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)

	w := s.do(t, http.MethodPost, "/api/approvals", alice, gin.H{"title": "", "approver": bob})
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.Equal(t, "fail", env.Status)
	require.Equal(t, "validation", env.Code)

	w = s.do(t, http.MethodPost, "/api/approvals", alice, gin.H{"title": "x", "approver": bob, "amount": -5})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// самосогласование отсекает сервис
	w = s.do(t, http.MethodPost, "/api/approvals", alice, gin.H{"title": "x", "approver": alice})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode(t, w, nil).Message, "own request")

	w = s.do(t, http.MethodPost, "/api/approvals", "", gin.H{"title": "x", "approver": bob})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApprovalLifecycle(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)
	created := s.create(t, alice, bob)
	path := "/api/approvals/" + created.ID

	w := s.do(t, http.MethodGet, path, carol, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decode(t, w, nil).Code)

	w = s.do(t, http.MethodGet, "/api/approvals/APR_missing", alice, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, path, alice, gin.H{"title": "Laptop Pro", "approver": bob, "amount": 1500})
	require.Equal(t, http.StatusOK, w.Code)
	var edited dto.ApprovalResponse
	decode(t, w, &edited)
	require.Equal(t, "Laptop Pro", edited.Title)

	w = s.do(t, http.MethodPut, path+"/status", alice, gin.H{"status": "approved"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, path+"/status", bob, gin.H{"status": "maybe"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path+"/status", bob, gin.H{"status": "approved", "comment": "ok"})
	require.Equal(t, http.StatusOK, w.Code)
	var decided dto.ApprovalResponse
	decode(t, w, &decided)
	require.Equal(t, "approved", decided.Status)
	require.Equal(t, "ok", decided.ApproverComment)
	require.NotNil(t, decided.ApprovedAt)

	w = s.do(t, http.MethodPut, path+"/status", bob, gin.H{"status": "rejected", "reason": "no"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_state", decode(t, w, nil).Code)

	w = s.do(t, http.MethodPut, path+"/withdraw", alice, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/approvals?limit=10&offset=0", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ApprovalListResponse
	decode(t, w, &list)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "approved", list.Data[0].Status)
}

func TestWithdrawApproval(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)
	created := s.create(t, alice, bob)
	path := "/api/approvals/" + created.ID + "/withdraw"

	w := s.do(t, http.MethodPut, path, bob, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ApprovalResponse
	decode(t, w, &resp)
	require.Equal(t, "withdrawn", resp.Status)
}

func TestGetApprovals_Query(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)
	for i := 0; i < 3; i++ {
		s.create(t, alice, bob)
	}

	w := s.do(t, http.MethodGet, "/api/approvals?limit=2", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ApprovalListResponse
	decode(t, w, &list)
	require.Equal(t, 3, list.Total)
	require.Len(t, list.Data, 2)

	w = s.do(t, http.MethodGet, "/api/approvals", carol, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Equal(t, 0, list.Total)
	require.NotNil(t, list.Data)

	w = s.do(t, http.MethodGet, "/api/approvals?limit=abc", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetApprovers(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)
	s.create(t, alice, bob)
	s.create(t, alice, carol)

	w := s.do(t, http.MethodGet, "/api/approvers?limit=5", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ApproversResponse
	decode(t, w, &resp)
	require.ElementsMatch(t, []string{carol, bob}, resp.Approvers)

	w = s.do(t, http.MethodGet, "/api/approvers?limit=x", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLockTimeoutIsRetryable(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)

	ok, err := s.locker.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = s.locker.Unlock(context.Background()) }()

	w := s.do(t, http.MethodGet, "/api/approvals", alice, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.Equal(t, "lock_timeout", decode(t, w, nil).Code)
}

func TestPingAndMetrics(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)

	w := s.do(t, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "pong")

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)

	w := s.do(t, http.MethodGet, "/api/auth/me", "Alice@Example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.UserResponse
	decode(t, w, &me)
	require.Equal(t, alice, me.Email)
	require.Equal(t, middleware.ModeHeader, me.AuthMode)
}

type recordingRevoker struct {
	tokens map[string]time.Duration
}

func (r *recordingRevoker) WriteJWTToBlacklist(_ context.Context, token string, ttl time.Duration) error {
	r.tokens[token] = ttl
	return nil
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, headerConfig(), nil)
	w := s.do(t, http.MethodPost, "/api/auth/logout", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cfg := &config.Config{
		Auth: config.AuthConfig{Mode: middleware.ModeJWT},
		JWT:  config.JWTConfig{Token: "secret", SigningMethod: jwt.SigningMethodHS256, ExpiresIn: time.Hour},
	}
	revoker := &recordingRevoker{tokens: map[string]time.Duration{}}
	s = newTestServer(t, cfg, revoker)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Email:          alice,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, revoker.tokens, token)
	require.Greater(t, revoker.tokens[token], 50*time.Minute)
}
