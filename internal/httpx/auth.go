package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Authenticator verifies HS256 bearer tokens issued by the identity service
// and puts the caller's session into the request context.
type Authenticator struct {
	Secret []byte
	Log    *logger.Logger
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.Verify(tokenFrom(r))
		if err != nil {
			writeError(w, r, a.Log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

func (a *Authenticator) Verify(raw string) (session.Session, error) {
	if raw == "" {
		return session.Session{}, apperr.Unauthorized("missing bearer token")
	}
	if len(a.Secret) == 0 {
		return session.Session{}, apperr.Unauthorized("authentication is not configured")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return session.Session{}, apperr.Unauthorized("invalid token")
	}

	sess := session.Session{
		AccountID: claimString(claims, "sub"),
		Email:     claimString(claims, "email"),
		Role:      claimString(claims, "role"),
	}
	if sess.AccountID == "" {
		sess.AccountID = claimString(claims, "user_id")
	}
	if sess.AccountID == "" {
		return session.Session{}, apperr.Unauthorized("token has no subject")
	}
	return sess, nil
}

// RequireAdmin must run after Authenticator.Middleware.
func RequireAdmin(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				writeError(w, r, log, apperr.Unauthorized("not authenticated"))
				return
			}
			if !sess.IsAdmin() {
				writeError(w, r, log, apperr.Forbidden("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenFrom reads the bearer header; websocket handshakes may pass
// access_token in the query since browsers cannot set headers there.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func claimString(c jwt.MapClaims, k string) string {
	s, _ := c[k].(string)
	return s
}

func mustSession(r *http.Request) session.Session {
	s, _ := session.FromContext(r.Context())
	return s
}
