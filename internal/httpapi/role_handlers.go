package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/rbac"
)

type assignRoleRequest struct {
	Role string `json:"role"`
}

type roleDefinition struct {
	Role         rbac.Role         `json:"role"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

type listRolesResponse struct {
	Default     rbac.Role         `json:"default"`
	Roles       []roleDefinition  `json:"roles"`
	Assignments []rbac.Assignment `json:"assignments"`
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	assignments, err := a.roles.List(r.Context(), actor)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []rbac.Assignment{}
	}
	policy := a.roles.Policy()
	defs := make([]roleDefinition, 0, len(policy.Roles))
	for _, role := range policy.RoleNames() {
		defs = append(defs, roleDefinition{Role: role, Capabilities: policy.Capabilities(role)})
	}
	writeJSON(w, http.StatusOK, listRolesResponse{
		Default:     policy.Default,
		Roles:       defs,
		Assignments: assignments,
	})
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	assignment, err := a.roles.Assign(r.Context(), actor, ps.ByName("email"), req.Role)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (a *API) handleRevokeRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string) {
	if err := a.roles.Revoke(r.Context(), actor, ps.ByName("email")); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
