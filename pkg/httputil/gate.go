package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// AccessGate approves callers before any stock operation runs. Tokens are
// issued elsewhere; the gate only checks the HS256 signature, expiry and issuer.
type AccessGate struct {
	secret []byte
	issuer string
}

// NewAccessGate creates a gate for tokens signed with secret. An empty issuer
// accepts any issuer.
func NewAccessGate(secret, issuer string) *AccessGate {
	return &AccessGate{secret: []byte(secret), issuer: issuer}
}

// Validate parses a bearer token and returns its subject
func (g *AccessGate) Validate(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, opts...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.TokenExpired()
		}
		return "", errors.TokenInvalid()
	}
	if !token.Valid {
		return "", errors.TokenInvalid()
	}

	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token. /health is always allowed.
func (g *AccessGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			Error(w, errors.Unauthorized("missing bearer token"))
			return
		}

		subject, err := g.Validate(tokenString)
		if err != nil {
			Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
