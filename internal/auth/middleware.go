package auth

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
)

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	// JWTSecret verifies HMAC-signed bearer tokens. The user id is the "sub" claim.
	JWTSecret string

	// DevUserID is assigned to requests without a token when no secret is set.
	DevUserID string
}

// Middleware attaches the caller's user id to the request context.
//
// Requests without an Authorization header pass through anonymously; the
// storage layer refuses them. A header that is present but invalid is
// rejected with 401.
func Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				// Browsers cannot set headers on websocket upgrades.
				if token := r.URL.Query().Get("access_token"); token != "" {
					header = "Bearer " + token
				}
			}

			if header == "" {
				if opts.JWTSecret == "" && opts.DevUserID != "" {
					r = r.WithContext(WithUserID(r.Context(), opts.DevUserID))
				}
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				response.Unauthorized(w, fmt.Errorf("authorization header must be 'Bearer <token>'"))
				return
			}

			if opts.JWTSecret == "" {
				log.Printf("[Auth] Bearer token received but no JWT secret is configured")
				response.Unauthorized(w, fmt.Errorf("token authentication is not configured"))
				return
			}

			userID, err := ParseToken(tokenString, opts.JWTSecret)
			if err != nil {
				log.Printf("[Auth] Rejected token: %v", err)
				response.Unauthorized(w, fmt.Errorf("invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// ParseToken verifies an HMAC-signed JWT and returns its subject.
func ParseToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read subject: %w", err)
	}
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return subject, nil
}
