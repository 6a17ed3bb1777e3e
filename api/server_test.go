package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/auth"
	"github.com/agromitra/agromitra/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return NewServer(Deps{
		Auth: auth.NewService(nil, auth.NewDevOTPSender(nil), tokens, nil),
	})
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["detail"].(string)
	return msg
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router := newTestServer(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/farm-profiles", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
}

func TestProtectedRouteRejectsGarbageToken(t *testing.T) {
	router := newTestServer(t).Router()

	req := httptest.NewRequest(http.MethodGet, "/farm-profiles", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	other, err := auth.NewTokenIssuer("different-secret", time.Hour)
	require.NoError(t, err)
	token, err := other.Issue(&storage.User{ID: "u1"})
	require.NoError(t, err)

	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/farm-profiles", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorEnvelopeShape(t *testing.T) {
	s := newTestServer(t)
	e := echo.New()
	e.HTTPErrorHandler = s.handleError
	e.GET("/unavailable", func(echo.Context) error {
		return apperr.Unavailable("Could not retrieve weather forecast. Please try again later.")
	})
	e.GET("/boom", func(echo.Context) error {
		return errors.New("nats: connection refused at 10.0.0.7")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unavailable", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Could not retrieve weather forecast. Please try again later.", detail(t, rec))

	// Unexpected errors collapse to the generic message; internals never
	// reach the client.
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	assert.Equal(t, "Internal server error. Please try again later.", detail(t, rec))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "", bearerToken("abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Bearer "))
}
