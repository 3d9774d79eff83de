package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"familyweather-backend/internal/config"
	"familyweather-backend/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) *InviteHandler {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Invite{}))

	cfg := &config.Config{}
	cfg.Invites.RSVPBaseURL = "https://rsvp.test/rsvp.html"
	cfg.Invites.ProductName = "Family Weather"
	cfg.Invites.SMSDailyLimit = 500

	h := NewInviteHandler(db, cfg)
	h.Verifier = JWTSignatureVerifier{}
	return h
}

// doRequest runs a handler against a bare echo context, the way the router
// would invoke it.
func doRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, handler, method, target, body, nil)
}
