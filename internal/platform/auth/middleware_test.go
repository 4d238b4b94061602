package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string, next echo.HandlerFunc) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	return c, mw(next)(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestIssuer_IssueAndParse(t *testing.T) {
	issuer := NewIssuer(testSigningKey, time.Hour)
	userID := uuid.New()

	tok, err := issuer.Issue(userID, "doc@example.com", "Dr. Ana")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.ID == "" {
		t.Error("expected a token id")
	}

	claims, err := issuer.Parse(tok.Value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != userID.String() || claims.Email != "doc@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID != tok.ID {
		t.Errorf("expected jti %s, got %s", tok.ID, claims.ID)
	}
}

func TestIssuer_Expired(t *testing.T) {
	issuer := NewIssuer(testSigningKey, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := issuer.Issue(uuid.New(), "doc@example.com", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewIssuer(testSigningKey, time.Minute).Parse(tok.Value); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestIssuer_WrongKey(t *testing.T) {
	tok, _ := NewIssuer([]byte("another-key"), time.Hour).Issue(uuid.New(), "a@b.c", "")
	if _, err := NewIssuer(testSigningKey, time.Hour).Parse(tok.Value); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestIssuer_NonUUIDSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "dev-user",
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if _, err := NewIssuer(testSigningKey, time.Hour).Parse(signed); err == nil {
		t.Fatal("expected non-uuid subject to be rejected")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	cfg := JWTConfig{Issuer: NewIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	cfg := JWTConfig{Issuer: NewIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer not.a.jwt", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	issuer := NewIssuer(testSigningKey, time.Hour)
	userID := uuid.New()
	tok, _ := issuer.Issue(userID, "doc@example.com", "")

	var seenUser, seenEmail string
	c, err := runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: issuer}), "Bearer "+tok.Value, func(c echo.Context) error {
		seenUser = UserIDFromContext(c.Request().Context())
		seenEmail = EmailFromContext(c.Request().Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenUser != userID.String() {
		t.Errorf("expected user %s, got %s", userID, seenUser)
	}
	if seenEmail != "doc@example.com" {
		t.Errorf("expected email in context, got %q", seenEmail)
	}
	if c.Get("user_id") != userID.String() {
		t.Errorf("expected user_id on echo context, got %v", c.Get("user_id"))
	}
}

func TestJWTMiddleware_RevokedToken(t *testing.T) {
	issuer := NewIssuer(testSigningKey, time.Hour)
	store := NewMemoryRevocationStore()
	defer store.Close()

	tok, _ := issuer.Issue(uuid.New(), "doc@example.com", "")
	_ = store.Revoke(context.Background(), tok.ID, tok.ExpiresAt)

	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: issuer, Revocations: store}), "Bearer "+tok.Value, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_NoHeader(t *testing.T) {
	devUser := uuid.New().String()
	cfg := JWTConfig{Issuer: NewIssuer(testSigningKey, time.Hour)}

	var seen string
	_, err := runMiddleware(t, DevAuthMiddleware(cfg, devUser), "", func(c echo.Context) error {
		seen = UserIDFromContext(c.Request().Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != devUser {
		t.Errorf("expected dev user %s, got %s", devUser, seen)
	}
}

func TestDevAuthMiddleware_StillVerifiesTokens(t *testing.T) {
	cfg := JWTConfig{Issuer: NewIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, DevAuthMiddleware(cfg, uuid.New().String()), "Bearer garbage", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}
