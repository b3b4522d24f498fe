package handler

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/library-lending/internal/config"
)

func registerCall(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    require.NoError(t, h.Register(e.NewContext(req, rec)))
    return rec
}

func TestRegisterLibrarianRequiresSignupCode(t *testing.T) {
    t.Run("wrong code refused", func(t *testing.T) {
        h := NewAuthHandler(config.Config{LibrarianSignupCode: "desk-code"}, nil, nil)
        rec := registerCall(t, h,
            `{"email":"desk@example.com","password":"pw","role":"LIBRARIAN","signup_code":"guess"}`)
        assert.Equal(t, http.StatusForbidden, rec.Code)
    })

    t.Run("missing code refused", func(t *testing.T) {
        h := NewAuthHandler(config.Config{LibrarianSignupCode: "desk-code"}, nil, nil)
        rec := registerCall(t, h,
            `{"email":"desk@example.com","password":"pw","role":"LIBRARIAN"}`)
        assert.Equal(t, http.StatusForbidden, rec.Code)
    })

    t.Run("disabled when no code configured", func(t *testing.T) {
        // With no code in the environment a matching guess must still
        // be refused; librarians are then created operationally only.
        h := NewAuthHandler(config.Config{}, nil, nil)
        rec := registerCall(t, h,
            `{"email":"desk@example.com","password":"pw","role":"LIBRARIAN","signup_code":""}`)
        assert.Equal(t, http.StatusForbidden, rec.Code)
    })
}
