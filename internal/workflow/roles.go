package workflow

import (
	"github.com/ksred/restock-api/internal/types"
)

// Actor is who is attempting a transition.
type Actor struct {
	UserID string
	Role   types.Role
}

type action string

const (
	actionApprove        action = "approve"
	actionReject         action = "reject"
	actionDispatch       action = "dispatch"
	actionReceivePartial action = "receive_partial"
	actionReceiveFull    action = "receive_full"
)

// rule is one edge of the state machine: the target state, the roles allowed
// to drive it, and the audit action recorded on success.
type rule struct {
	next  types.OrderStatus
	roles map[types.Role]bool
	audit string
}

// transitions is the static capability table: (current state, action) ->
// rule. Anything absent from the table is an invalid transition. REJECTED
// and DELIVERED have no entries; they are terminal.
var transitions = map[types.OrderStatus]map[action]rule{
	types.StatusPendingDMApproval: {
		actionApprove: {
			next:  types.StatusPendingFMApproval,
			roles: map[types.Role]bool{types.RoleDM: true},
			audit: types.ActionDMApproved,
		},
		actionReject: {
			next:  types.StatusRejected,
			roles: map[types.Role]bool{types.RoleDM: true},
			audit: types.ActionOrderRejected,
		},
	},
	types.StatusPendingFMApproval: {
		actionApprove: {
			next:  types.StatusApprovedForFulfillment,
			roles: map[types.Role]bool{types.RoleFM: true},
			audit: types.ActionFMApproved,
		},
		actionReject: {
			next:  types.StatusRejected,
			roles: map[types.Role]bool{types.RoleFM: true},
			audit: types.ActionOrderRejected,
		},
	},
	types.StatusApprovedForFulfillment: {
		actionDispatch: {
			next:  types.StatusInTransit,
			roles: map[types.Role]bool{types.RoleFM: true, types.RoleSystem: true},
			audit: types.ActionDispatched,
		},
	},
	types.StatusInTransit: {
		actionReceivePartial: {
			next:  types.StatusPartiallyDelivered,
			roles: map[types.Role]bool{types.RoleFM: true, types.RoleSystem: true},
			audit: types.ActionPartialReceipt,
		},
		actionReceiveFull: {
			next:  types.StatusDelivered,
			roles: map[types.Role]bool{types.RoleFM: true, types.RoleSystem: true},
			audit: types.ActionFullReceipt,
		},
	},
	types.StatusPartiallyDelivered: {
		actionReceiveFull: {
			next:  types.StatusDelivered,
			roles: map[types.Role]bool{types.RoleFM: true, types.RoleSystem: true},
			audit: types.ActionFullReceipt,
		},
	},
}

// lookup resolves an attempted transition. Unknown edges fail before role
// checks: an actor learns a move is illegal, not that their role is wrong
// for a move that does not exist.
func lookup(status types.OrderStatus, act action, actor Actor) (rule, error) {
	edges, ok := transitions[status]
	if !ok {
		return rule{}, types.InvalidTransitionf("order status %s is terminal", status)
	}
	r, ok := edges[act]
	if !ok {
		return rule{}, types.InvalidTransitionf("cannot %s an order in status %s", act, status)
	}
	if !r.roles[actor.Role] {
		return rule{}, types.Unauthorizedf("role %s cannot %s an order in status %s", actor.Role, act, status)
	}
	return r, nil
}
