package http

import (
	"net/http"
	"strings"
	"time"
)

const (
	sessionCookieName = "authorization"
	bearerPrefix      = "Bearer "
	loggedOutSentinel = "Bearer Logged-Out"
	rejectedSentinel  = "Bearer Rejected Token"
)

// CookieManager escribe y limpia la cookie de sesion.
type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure, SameSite: http.SameSiteStrictMode}
}

// SetSession guarda "Bearer <token>" con el mismo max-age que el token.
func (m *CookieManager) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    bearerPrefix + token,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

// sessionToken extrae el token; la cookie tiene prioridad sobre el header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if token := stripBearer(cookie.Value); token != "" {
			return token
		}
	}
	return stripBearer(r.Header.Get("Authorization"))
}

func stripBearer(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(value[len(bearerPrefix):])
	}
	return value
}
