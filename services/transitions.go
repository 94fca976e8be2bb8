package services

import (
	"dular-server/models"
)

// Action is a named lifecycle operation on a service.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionConfirm  Action = "confirm"
	ActionEvaluate Action = "evaluate"
	ActionCancel   Action = "cancel"
)

type edge struct {
	from   models.ServiceStatus
	action Action
}

// transitions is the complete status graph. Anything absent is rejected.
var transitions = map[edge]models.ServiceStatus{
	{models.StatusRequested, ActionAccept}:    models.StatusAccepted,
	{models.StatusRequested, ActionDecline}:   models.StatusDeclined,
	{models.StatusRequested, ActionCancel}:    models.StatusCanceled,
	{models.StatusAccepted, ActionStart}:      models.StatusInProgress,
	{models.StatusAccepted, ActionCancel}:     models.StatusCanceled,
	{models.StatusInProgress, ActionComplete}: models.StatusDone,
	{models.StatusDone, ActionConfirm}:        models.StatusConfirmed,
	{models.StatusConfirmed, ActionEvaluate}:  models.StatusFinalized,
}

// party says which side of the booking must be the actor.
type party int

const (
	partyClient party = iota
	partyProvider
	partyAny // client, provider or admin
)

type rule struct {
	roles []models.Role
	party party
}

var rules = map[Action]rule{
	ActionAccept:   {roles: []models.Role{models.RoleProvider}, party: partyProvider},
	ActionDecline:  {roles: []models.Role{models.RoleProvider}, party: partyProvider},
	ActionStart:    {roles: []models.Role{models.RoleProvider}, party: partyProvider},
	ActionComplete: {roles: []models.Role{models.RoleProvider}, party: partyProvider},
	ActionConfirm:  {roles: []models.Role{models.RoleClient}, party: partyClient},
	ActionEvaluate: {roles: []models.Role{models.RoleClient}, party: partyClient},
	ActionCancel:   {roles: []models.Role{models.RoleClient, models.RoleProvider, models.RoleAdmin}, party: partyAny},
}

// Next returns the status reached by applying action in status from.
func Next(from models.ServiceStatus, action Action) (models.ServiceStatus, bool) {
	to, ok := transitions[edge{from, action}]
	return to, ok
}

// SourcesOf lists the statuses from which action is allowed.
func SourcesOf(action Action) []models.ServiceStatus {
	var out []models.ServiceStatus
	for _, st := range models.AllStatuses {
		if _, ok := transitions[edge{st, action}]; ok {
			out = append(out, st)
		}
	}
	return out
}

// permits reports whether actor may perform action on svc. Admins bypass
// ownership on actions that allow the admin role.
func permits(action Action, actor Actor, svc *models.Service) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	allowed := false
	for _, role := range r.roles {
		if role == actor.Role {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return (r.party == partyClient || r.party == partyAny) && svc.ClientID == actor.ID
	case models.RoleProvider:
		return (r.party == partyProvider || r.party == partyAny) && svc.ProviderID == actor.ID
	}
	return false
}
