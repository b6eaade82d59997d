// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (v *fakeVerifier) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*AccessTokenClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: ""},
		{name: "bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "wrong scheme", header: "Basic abc123", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
		{name: "padded token", header: "Bearer  abc123 ", want: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractToken(r))
		})
	}
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	handler := Authenticator(&fakeVerifier{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run without a token")
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorRejectsBadToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("bad signature")}
	handler := Authenticator(verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run with an invalid token")
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorAttachesIdentity(t *testing.T) {
	verifier := &fakeVerifier{
		claims: &AccessTokenClaims{UserID: "u-1", Role: "admin"},
	}

	var gotUserID, gotRole string
	handler := Authenticator(verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID = GetUserID(r.Context())
			gotRole = GetUserRole(r.Context())
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", gotUserID)
	assert.Equal(t, "admin", gotRole)
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	var authenticated bool
	handler := OptionalAuth(&fakeVerifier{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authenticated = IsAuthenticated(r.Context())
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, authenticated)
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("expired")}

	var authenticated bool
	handler := OptionalAuth(verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authenticated = IsAuthenticated(r.Context())
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer stale")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	// An invalid token on an optional route degrades to anonymous rather
	// than failing the request.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, authenticated)
}

func TestOptionalAuthAttachesValidIdentity(t *testing.T) {
	verifier := &fakeVerifier{claims: &AccessTokenClaims{UserID: "u-1"}}

	var gotUserID string
	handler := OptionalAuth(verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID = GetUserID(r.Context())
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, "u-1", gotUserID)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "admin passes", role: "admin", wantStatus: http.StatusOK},
		{name: "user forbidden", role: "user", wantStatus: http.StatusForbidden},
		{
			name:       "anonymous unauthorized",
			role:       "",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}),
			)

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				ctx := context.WithValue(r.Context(), UserRoleKey, tt.role)
				r = r.WithContext(ctx)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
