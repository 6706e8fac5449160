package authz

import (
	"github.com/vyrodovalexey/authgate/internal/auth"
)

// Evaluate decides whether sc may reach target. A nil target has no
// declarations. A nil sc, including a nil pointer of either variant, is an
// anonymous caller. The first decisive rule wins.
func Evaluate(target *Target, sc auth.SecurityContext) Decision {
	if auth.IsNil(sc) {
		sc = nil
	}
	d := evaluate(target, sc)
	if target != nil {
		d.Target = target.Name
	}
	if sc != nil {
		d.Principal = sc.PrincipalName()
	}
	return d
}

func evaluate(target *Target, sc auth.SecurityContext) Decision {
	if target != nil {
		m := target.Method
		switch {
		case m.DenyAll:
			return Decision{Outcome: OutcomeForbidden, Rule: RuleMethodDenyAll, Reason: "route denies all callers"}
		case m.RolesAllowed != nil:
			return checkRoles(RuleMethodRolesAllowed, m.RolesAllowed, sc)
		case m.PermitAll:
			return Decision{Outcome: OutcomeAllow, Rule: RuleMethodPermitAll, Reason: "route permits all callers"}
		}

		c := target.ClassRule
		switch {
		case c.RolesAllowed != nil:
			return checkRoles(RuleClassRolesAllowed, c.RolesAllowed, sc)
		case c.PermitAll:
			return Decision{Outcome: OutcomeAllow, Rule: RuleClassPermitAll, Reason: "class permits all callers"}
		}
	}

	if sc == nil || sc.PrincipalName() == "" {
		return Decision{Outcome: OutcomeUnauthorized, Rule: RuleAuthenticated, Reason: "no authenticated principal"}
	}
	return Decision{Outcome: OutcomeAllow, Rule: RuleAuthenticated, Reason: "authenticated principal"}
}

// checkRoles admits sc when it holds at least one of roles.
func checkRoles(rule Rule, roles []string, sc auth.SecurityContext) Decision {
	if sc == nil {
		if len(roles) > 0 {
			return Decision{Outcome: OutcomeUnauthorized, Rule: rule, Reason: "role required but caller is anonymous"}
		}
		return Decision{Outcome: OutcomeForbidden, Rule: rule, Reason: "no role is allowed"}
	}

	for _, role := range roles {
		if sc.IsUserInRole(role) {
			return Decision{Outcome: OutcomeAllow, Rule: rule, Reason: "caller holds role " + role}
		}
	}
	return Decision{Outcome: OutcomeForbidden, Rule: rule, Reason: "caller holds none of the allowed roles"}
}
