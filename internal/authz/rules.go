package authz

// MethodRule holds the declarations made on a single route.
type MethodRule struct {
	// DenyAll rejects every caller.
	DenyAll bool

	// RolesAllowed lists roles of which the caller needs one. A non-nil
	// slice is a declaration even when empty.
	RolesAllowed []string

	// PermitAll admits every caller, authenticated or not.
	PermitAll bool
}

// IsDeclared reports whether the route declares any rule.
func (r MethodRule) IsDeclared() bool {
	return r.DenyAll || r.RolesAllowed != nil || r.PermitAll
}

// ClassRule holds the declarations shared by the routes of a class.
// DenyAll cannot be declared at class scope.
type ClassRule struct {
	RolesAllowed []string
	PermitAll    bool
}

// IsDeclared reports whether the class declares any rule.
func (r ClassRule) IsDeclared() bool {
	return r.RolesAllowed != nil || r.PermitAll
}

// Target is a protected route with its own and its class's rules.
type Target struct {
	// Name is the route identity.
	Name string

	// Class groups routes that share ClassRule.
	Class string

	Method    MethodRule
	ClassRule ClassRule
}
