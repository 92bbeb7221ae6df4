package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ctxKey int

const userIDKey ctxKey = 0

// Auth extrai a identidade do chamador de "Authorization: Bearer <userId:key>"
// e valida a parte da chave contra apiKey em tempo constante. Com apiKey
// vazia (modo local) o token é só o userId, sem validação.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			userID := token
			if apiKey != "" {
				userID = ""
				if i := strings.LastIndexByte(token, ':'); i > 0 {
					user, key := token[:i], token[i+1:]
					if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
						userID = user
					}
				}
				if userID == "" {
					unauthorized(w, "invalid bearer token")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"` + msg + `"}`))
}
