package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var ErrTokenInvalid = errors.New("api: invalid token")

// ParseToken validates an HS256 token signed with secret.
func ParseToken(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// authMiddleware requires a bearer token when a secret is configured.
// Browsers cannot set headers on websocket upgrades, so ?token= is accepted too.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jwtSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if h := r.Header.Get("Authorization"); h != "" {
			bearer, ok := strings.CutPrefix(h, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "authorization header must use the Bearer scheme")
				return
			}
			token = bearer
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := ParseToken(token, s.jwtSecret)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected API request")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		log.Debug().Str("subject", claims.Subject).Str("path", r.URL.Path).Msg("Authenticated API request")
		next.ServeHTTP(w, r)
	})
}
