package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller, forwarded by the routing layer.
type Actor struct {
	ID   string
	Role Role
}

type Action string

const (
	ActionViewOrder        Action = "order:view"
	ActionCancelOrder      Action = "order:cancel"
	ActionUpdateItemStatus Action = "order:update_item"
	ActionOpenCharge       Action = "order:open_charge"
	ActionRefund           Action = "payment:refund"
	ActionReconcile        Action = "payment:reconcile"
	ActionPlatformReports  Action = "reports:platform"
	ActionVendorReports    Action = "reports:vendor"
)

// ItemRef points CanPerform at one line item of an order.
type ItemRef struct {
	Order *Order
	Index int
}

// CanPerform is the single capability check for the settlement core. Every
// handler and service goes through it instead of re-deriving ownership rules
// at the call site. Admins can do everything.
func CanPerform(actor Actor, action Action, resource any) bool {
	if actor.Role == RoleAdmin {
		return true
	}

	switch action {
	case ActionViewOrder:
		o, ok := resource.(*Order)
		if !ok {
			return false
		}
		if actor.Role == RoleCustomer {
			return o.CustomerID == actor.ID
		}
		if actor.Role == RoleVendor {
			return o.HasVendor(actor.ID)
		}

	case ActionCancelOrder, ActionOpenCharge:
		o, ok := resource.(*Order)
		if !ok {
			return false
		}
		return actor.Role == RoleCustomer && o.CustomerID == actor.ID

	case ActionUpdateItemStatus:
		ref, ok := resource.(ItemRef)
		if !ok || ref.Order == nil || ref.Index < 0 || ref.Index >= len(ref.Order.Items) {
			return false
		}
		return actor.Role == RoleVendor && ref.Order.Items[ref.Index].VendorID == actor.ID

	case ActionVendorReports:
		vendorID, ok := resource.(string)
		if !ok {
			return false
		}
		return actor.Role == RoleVendor && vendorID == actor.ID

	case ActionRefund, ActionReconcile, ActionPlatformReports:
		// Admin only, handled above.
		return false
	}
	return false
}
