package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/domain"
)

const (
	apiKeyHeader = "X-Api-Key"
	exportSource = "centralis-data-portal"
)

type exportMeta struct {
	GeneratedAt string `json:"generated_at"`
	Source      string `json:"source"`
	Version     string `json:"version"`
	Total       int    `json:"total"`
}

type exportResponse struct {
	Success      bool             `json:"success"`
	TotalResults int              `json:"total_results"`
	Data         []map[string]any `json:"data"`
	Meta         *exportMeta      `json:"meta,omitempty"`
}

func (a *API) exportAuthorized(r *http.Request) bool {
	if a.opts.ExportAPIKey == "" {
		return true
	}
	got := r.Header.Get(apiKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.opts.ExportAPIKey)) == 1
}

// handlePublished serves the read-only export of published entries.
func (a *API) handlePublished(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !a.exportAuthorized(r) {
		writeError(w, r, http.StatusUnauthorized, domain.Code(domain.ErrUnauthorized), "invalid api key")
		return
	}
	q := r.URL.Query()
	var kind domain.Kind
	if raw := q.Get("type"); raw != "" {
		k, err := domain.ParseKind(raw)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		kind = k
	}
	withMeta := false
	if raw := q.Get("meta"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, domain.Code(domain.ErrValidation), "meta must be a boolean")
			return
		}
		withMeta = v
	}

	entries, err := a.workflow.Published(r.Context(), kind)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	data := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		data = append(data, domain.Flatten(e))
	}
	resp := exportResponse{
		Success:      true,
		TotalResults: len(data),
		Data:         data,
	}
	if withMeta {
		resp.Meta = &exportMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Source:      exportSource,
			Version:     a.opts.Version,
			Total:       len(data),
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, resp)
}
