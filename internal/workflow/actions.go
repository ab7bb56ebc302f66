package workflow

import (
	"context"
	"fmt"
	"strings"

	"centralis.org/internal/domain"
	"centralis.org/internal/rbac"
)

// Action is a user-facing verb mapped onto a target status.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionPublish Action = "publish"
	// ActionRevert covers published -> draft and the rejected -> draft resubmission.
	ActionRevert Action = "revert"
)

// Actions lists every action in display order.
var Actions = []Action{ActionSubmit, ActionApprove, ActionReject, ActionPublish, ActionRevert}

var actionTargets = map[Action]domain.Status{
	ActionSubmit:  domain.StatusPendingReview,
	ActionApprove: domain.StatusApproved,
	ActionReject:  domain.StatusRejected,
	ActionPublish: domain.StatusPublished,
	ActionRevert:  domain.StatusDraft,
}

// ParseAction resolves an action name.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := actionTargets[a]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", domain.ErrValidation, raw)
	}
	return a, nil
}

// Target returns the status an action moves to.
func (a Action) Target() domain.Status {
	return actionTargets[a]
}

// View is an entry together with the actions its reader may take on it.
type View struct {
	domain.Entry
	Actions []Action `json:"actions"`
}

// Available returns the actions actor may take on entry right now.
func (e *Engine) Available(ctx context.Context, actor string, entry domain.Entry) ([]Action, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	role, err := e.roles.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return e.available(role, actor, entry), nil
}

func (e *Engine) available(role rbac.Role, actor string, entry domain.Entry) []Action {
	out := []Action{}
	policy := e.roles.Policy()
	for _, a := range Actions {
		ed, ok := lookup(entry.Status, a.Target())
		if ok && ed.permits(policy, role, actor, entry) {
			out = append(out, a)
		}
	}
	return out
}

// Perform resolves action and delegates to Transition.
func (e *Engine) Perform(ctx context.Context, actor, id, action, reason string) (domain.Entry, error) {
	a, err := ParseAction(action)
	if err != nil {
		return domain.Entry{}, err
	}
	return e.Transition(ctx, actor, id, a.Target(), reason)
}

// View returns one entry with the actor's available actions.
func (e *Engine) View(ctx context.Context, actor, id string) (View, error) {
	entry, err := e.Get(ctx, actor, id)
	if err != nil {
		return View{}, err
	}
	actions, err := e.Available(ctx, actor, entry)
	if err != nil {
		return View{}, err
	}
	return View{Entry: entry, Actions: actions}, nil
}

// ListViews is List with each entry's available actions resolved once per call.
func (e *Engine) ListViews(ctx context.Context, actor string, filter domain.Filter) ([]View, error) {
	list, err := e.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	actor = rbac.NormalizeIdentity(actor)
	role, err := e.roles.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(list))
	for _, entry := range list {
		out = append(out, View{Entry: entry, Actions: e.available(role, actor, entry)})
	}
	return out, nil
}
