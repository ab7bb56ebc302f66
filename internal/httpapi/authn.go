package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/auth"
	"centralis.org/internal/domain"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authedHandle receives the verified identity from the bearer token subject.
type authedHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string)

func (a *API) authed(next authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				unauthorized(w, r, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal", "authentication error")
			return
		}
		ctx := auth.ContextWithUser(r.Context(), claims.Subject)
		ctx = auth.ContextWithToken(ctx, token)
		next(w, r.WithContext(ctx), ps, claims.Subject)
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="centralis"`)
	writeError(w, r, http.StatusUnauthorized, domain.Code(domain.ErrUnauthorized), msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
