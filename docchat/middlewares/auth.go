// docchat/middlewares/auth.go
package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"docchat/docchat/config"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ClientKey contextKey = "bridge_client"

// AuthMiddleware admits requests carrying an HS256 bearer token signed with the
// bridge secret. Websocket clients that cannot set headers may pass the token
// as ?token=.
func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			client, err := ParseToken(cfg.BridgeSecret, tokenStr)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return r.URL.Query().Get("token")
	}
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// ParseToken validates tokenStr and returns its subject.
func ParseToken(secret, tokenStr string) (string, error) {
	if secret == "" {
		return "", errors.New("bridge secret not configured")
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

// MintToken issues a bridge token for client valid for ttl.
func MintToken(secret, client string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("bridge secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   client,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ClientFromContext returns the authenticated bridge client name.
func ClientFromContext(ctx context.Context) string {
	client, _ := ctx.Value(ClientKey).(string)
	return client
}
