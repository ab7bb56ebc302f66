package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/domain"
	"centralis.org/internal/workflow"
)

type createEntryRequest struct {
	Kind        string              `json:"kind"`
	Research    *domain.Research    `json:"research"`
	Partnership *domain.Partnership `json:"partnership"`
	Ranking     *domain.Ranking     `json:"ranking"`
}

type actionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type listEntriesResponse struct {
	Items []workflow.View `json:"items"`
	Total int             `json:"total"`
}

type actionsResponse struct {
	ID      string            `json:"id"`
	Status  domain.Status     `json:"status"`
	Actions []workflow.Action `json:"actions"`
}

func (a *API) handleListEntries(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	filter, err := parseFilter(r, actor)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	views, err := a.workflow.ListViews(r.Context(), actor, filter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEntriesResponse{Items: views, Total: len(views)})
}

func parseFilter(r *http.Request, actor string) (domain.Filter, error) {
	q := r.URL.Query()
	var f domain.Filter
	if raw := q.Get("kind"); raw != "" {
		k, err := domain.ParseKind(raw)
		if err != nil {
			return domain.Filter{}, err
		}
		f.Kind = k
	}
	if raw := q.Get("status"); raw != "" {
		s, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.Filter{}, err
		}
		f.Status = s
	}
	if raw := q.Get("mine"); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Filter{}, fmt.Errorf("%w: mine must be a boolean", domain.ErrValidation)
		}
		if mine {
			f.CreatedBy = actor
		}
	}
	return f, nil
}

func (a *API) handleCreateEntry(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	created, err := a.workflow.Create(r.Context(), actor, domain.Entry{
		Kind:        domain.Kind(req.Kind),
		Research:    req.Research,
		Partnership: req.Partnership,
		Ranking:     req.Ranking,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	actions, err := a.workflow.Available(r.Context(), actor, created)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/entries/"+created.ID)
	writeJSON(w, http.StatusCreated, workflow.View{Entry: created, Actions: actions})
}

func (a *API) handleGetEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string) {
	view, err := a.workflow.View(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleListActions(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string) {
	view, err := a.workflow.View(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionsResponse{ID: view.ID, Status: view.Status, Actions: view.Actions})
}

func (a *API) handlePerformAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params, actor string) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	updated, err := a.workflow.Perform(r.Context(), actor, ps.ByName("id"), req.Action, req.Reason)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	actions, err := a.workflow.Available(r.Context(), actor, updated)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow.View{Entry: updated, Actions: actions})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	stats, err := a.workflow.Stats(r.Context(), actor)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
