package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestContextResolver(t *testing.T) {
	var r ContextResolver

	if _, err := r.CurrentUserID(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	id, err := r.CurrentUserID(WithUserID(context.Background(), "user-1"))
	if err != nil || id != "user-1" {
		t.Errorf("CurrentUserID() = %q, %v", id, err)
	}
}

func TestStaticResolver(t *testing.T) {
	if _, err := (StaticResolver{}).CurrentUserID(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("empty static resolver should refuse, got %v", err)
	}

	r := StaticResolver{UserID: "local"}
	if id, _ := r.CurrentUserID(context.Background()); id != "local" {
		t.Errorf("CurrentUserID() = %q, want local", id)
	}
	if id, _ := r.CurrentUserID(WithUserID(context.Background(), "alice")); id != "alice" {
		t.Errorf("context user should win, got %q", id)
	}
}

func TestParseToken(t *testing.T) {
	valid := signToken(t, jwt.MapClaims{"sub": "user-42", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	expired := signToken(t, jwt.MapClaims{"sub": "user-42", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	noSubject := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	wrongSecret := signToken(t, jwt.MapClaims{"sub": "user-42"}, "other")

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"valid", valid, "user-42", false},
		{"expired", expired, "", true},
		{"no subject", noSubject, "", true},
		{"wrong secret", wrongSecret, "", true},
		{"garbage", "not.a.token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.token, testSecret)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})

	valid := signToken(t, jwt.MapClaims{"sub": "user-7"}, testSecret)

	tests := []struct {
		name       string
		opts       MiddlewareOptions
		header     string
		wantStatus int
		wantBody   string
	}{
		{"anonymous", MiddlewareOptions{JWTSecret: testSecret}, "", http.StatusOK, ""},
		{"dev user", MiddlewareOptions{DevUserID: "dev"}, "", http.StatusOK, "dev"},
		{"valid token", MiddlewareOptions{JWTSecret: testSecret}, "Bearer " + valid, http.StatusOK, "user-7"},
		{"bad scheme", MiddlewareOptions{JWTSecret: testSecret}, "Basic abc", http.StatusUnauthorized, ""},
		{"invalid token", MiddlewareOptions{JWTSecret: testSecret}, "Bearer nope", http.StatusUnauthorized, ""},
		{"token without secret", MiddlewareOptions{DevUserID: "dev"}, "Bearer " + valid, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			Middleware(tt.opts)(echo).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddleware_QueryToken(t *testing.T) {
	valid := signToken(t, jwt.MapClaims{"sub": "user-9"}, testSecret)

	var got string
	handler := Middleware(MiddlewareOptions{JWTSecret: testSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+valid, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got != "user-9" {
		t.Errorf("user = %q, want user-9", got)
	}
}
