package httpapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/audit"
	"centralis.org/internal/auth"
	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
)

type tokenRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	Email        string            `json:"email"`
	Role         rbac.Role         `json:"role"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

// handleAuthToken mints a token for any email. Registered only when dev tokens are enabled.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	email := rbac.NormalizeIdentity(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		writeError(w, r, http.StatusBadRequest, domain.Code(err), err.Error())
		return
	}

	token, err := auth.GenerateToken(email, a.opts.TokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(a.opts.TokenTTL)
	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"email":      email,
		"expires_at": expiresAt.Format(time.RFC3339),
		"source":     "dev_endpoint",
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	role, err := a.roles.Resolve(r.Context(), actor)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	caps := a.roles.Policy().Capabilities(role)
	if caps == nil {
		caps = []rbac.Capability{}
	}
	writeJSON(w, http.StatusOK, meResponse{
		Email:        actor,
		Role:         role,
		Capabilities: caps,
	})
}
