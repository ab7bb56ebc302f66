package workflow

import (
	"context"

	"centralis.org/internal/domain"
)

// Stats summarizes entry counts for the dashboard.
type Stats struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
	ByKind   map[domain.Kind]int   `json:"by_kind"`
	Mine     int                   `json:"mine"`
}

// Stats counts entries per status and kind; Mine counts those created by actor.
func (e *Engine) Stats(ctx context.Context, actor string) (Stats, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return Stats{}, err
	}
	list, err := e.store.FindAll(ctx, domain.Filter{})
	if err != nil {
		return Stats{}, domain.StorageError(err)
	}
	s := Stats{
		ByStatus: make(map[domain.Status]int, len(domain.Statuses)),
		ByKind:   make(map[domain.Kind]int, len(domain.Kinds)),
	}
	for _, st := range domain.Statuses {
		s.ByStatus[st] = 0
	}
	for _, k := range domain.Kinds {
		s.ByKind[k] = 0
	}
	for _, entry := range list {
		s.Total++
		s.ByStatus[entry.Status]++
		s.ByKind[entry.Kind]++
		if entry.CreatedBy == actor {
			s.Mine++
		}
	}
	return s, nil
}
