package rbac

// Role constants
const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Permission constants
const (
	PermResolveRequest    = "resolve_request"
	PermDepositRent       = "deposit_rent"
	PermDelist            = "delist"
	PermSetAPR            = "set_apr"
	PermSetFees           = "set_fees"
	PermPause             = "pause"
	PermTriggerSettlement = "trigger_settlement"
	PermManageRoles       = "manage_roles"
	PermTransferOwnership = "transfer_ownership"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleOwner: {
		PermResolveRequest, PermDepositRent, PermDelist, PermSetAPR, PermSetFees,
		PermPause, PermTriggerSettlement, PermManageRoles, PermTransferOwnership,
	},
	RoleAdmin: {
		PermResolveRequest, PermDepositRent, PermDelist, PermSetAPR, PermSetFees,
		PermPause, PermTriggerSettlement,
		// Admin CANNOT: PermManageRoles, PermTransferOwnership
	},
	RoleOperator: {
		PermTriggerSettlement,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// AnyHasPermission reports whether any of roles grants permission.
func AnyHasPermission(roles []string, permission string) bool {
	for _, r := range roles {
		if HasPermission(r, permission) {
			return true
		}
	}
	return false
}

// IsOwnerOperation checks if permission is reserved to the ledger owner.
func IsOwnerOperation(permission string) bool {
	return permission == PermManageRoles || permission == PermTransferOwnership
}

// IsGrantable reports whether role may be assigned through a role change.
// Ownership moves only through an ownership transfer.
func IsGrantable(role string) bool {
	return role == RoleAdmin || role == RoleOperator
}
