// Package middleware содержит HTTP middleware движка токеномики.
package middleware

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/yieldmart/internal/validation"
)

type contextKey string

const addressKey contextKey = "address"

const (
	authCookieName = "session"
	authCookieTTL  = 30 * 24 * time.Hour
	tokenIssuer    = "yieldmart"
)

// AuthMiddleware определяет адрес вызывающего по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware. При пустом секрете
// генерируется случайный ключ, и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie сессии и добавляет адрес в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		addr, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAddress(r.Context(), addr)))
	})
}

// SetAuthCookie устанавливает cookie сессии для адреса.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, addr string) {
	value, err := a.sign(addr, time.Now())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) sign(addr string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   addr,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(authCookieTTL)),
		ID:        uuid.NewString(),
	})
	return token.SignedString(a.secretKey)
}

func (a *AuthMiddleware) parseCookie(value string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}

	if !validation.IsValidIdentifier(claims.Subject) {
		return "", false
	}
	return claims.Subject, true
}

// WithAddress кладёт адрес вызывающего в контекст.
func WithAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, addressKey, addr)
}

// GetAddressFromContext извлекает адрес вызывающего из контекста запроса.
func GetAddressFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(addressKey).(string)
	return addr, ok && addr != ""
}
