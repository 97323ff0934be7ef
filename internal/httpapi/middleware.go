package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "stockyard_session"
	adminHeader   = "X-Admin-Token"
)

// logRequests пишет структурированную строку на каждый запрос.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": time.Since(start),
		}).Info("http request")
	})
}

// requireAdmin сверяет админский токен; без настроенного токена админка закрыта.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			http.Error(w, "admin API disabled", http.StatusForbidden)
			return
		}
		token := r.Header.Get(adminHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			http.Error(w, "invalid admin token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionID извлекает идентификатор сессии корзины из заголовка или cookie.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
