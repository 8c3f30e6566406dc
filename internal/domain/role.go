package domain

// Role tags carried on the identity. The auth core only stores them; access
// decisions belong to the resource gateway consuming the verified signal.
const (
	RoleAdmin     = "admin"
	RoleCustomer  = "customer"
	RoleFarmer    = "farmer"
	RoleVendor    = "vendor"
	RoleLogistics = "logistics"
)

// DefaultRole is assigned when registration omits a role.
const DefaultRole = RoleCustomer
