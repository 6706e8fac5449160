package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/authgate/internal/auth"
)

func newSecurityContext(t *testing.T, principal string, roles ...string) auth.SecurityContext {
	t.Helper()
	sc, err := auth.NewTokenContext(principal, roles, false, auth.SchemeBearer)
	require.NoError(t, err)
	return sc
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	reader := newSecurityContext(t, "alice", "reader")
	admin := newSecurityContext(t, "bob", "admin", "reader")
	nobody := newSecurityContext(t, "carol")

	tests := []struct {
		name    string
		target  *Target
		sc      auth.SecurityContext
		outcome Outcome
		rule    Rule
	}{
		{
			name:    "no declarations and anonymous",
			target:  nil,
			sc:      nil,
			outcome: OutcomeUnauthorized,
			rule:    RuleAuthenticated,
		},
		{
			name:    "no declarations and authenticated",
			target:  &Target{Name: "GET /me"},
			sc:      nobody,
			outcome: OutcomeAllow,
			rule:    RuleAuthenticated,
		},
		{
			name:    "deny all beats everything",
			target:  &Target{Name: "x", Method: MethodRule{DenyAll: true, RolesAllowed: []string{"admin"}, PermitAll: true}},
			sc:      admin,
			outcome: OutcomeForbidden,
			rule:    RuleMethodDenyAll,
		},
		{
			name:    "method deny all beats class permit all",
			target:  &Target{Name: "x", Method: MethodRule{DenyAll: true}, ClassRule: ClassRule{PermitAll: true}},
			sc:      admin,
			outcome: OutcomeForbidden,
			rule:    RuleMethodDenyAll,
		},
		{
			name:    "method deny all beats class permit all for anonymous",
			target:  &Target{Name: "x", Method: MethodRule{DenyAll: true}, ClassRule: ClassRule{PermitAll: true}},
			sc:      nil,
			outcome: OutcomeForbidden,
			rule:    RuleMethodDenyAll,
		},
		{
			name:    "deny all for anonymous is forbidden",
			target:  &Target{Name: "x", Method: MethodRule{DenyAll: true}},
			sc:      nil,
			outcome: OutcomeForbidden,
			rule:    RuleMethodDenyAll,
		},
		{
			name:    "roles allowed matches",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"reader", "writer"}}},
			sc:      reader,
			outcome: OutcomeAllow,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "roles allowed without match",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"writer"}}},
			sc:      reader,
			outcome: OutcomeForbidden,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "roles allowed anonymous",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"writer"}}},
			sc:      nil,
			outcome: OutcomeUnauthorized,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "roles allowed beats permit all",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"writer"}, PermitAll: true}},
			sc:      reader,
			outcome: OutcomeForbidden,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "empty roles allowed denies authenticated",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{}}},
			sc:      admin,
			outcome: OutcomeForbidden,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "empty roles allowed denies anonymous",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{}}},
			sc:      nil,
			outcome: OutcomeForbidden,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "method permit all admits anonymous",
			target:  &Target{Name: "x", Method: MethodRule{PermitAll: true}, ClassRule: ClassRule{RolesAllowed: []string{"admin"}}},
			sc:      nil,
			outcome: OutcomeAllow,
			rule:    RuleMethodPermitAll,
		},
		{
			name:    "method roles beat class permit all",
			target:  &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"admin"}}, ClassRule: ClassRule{PermitAll: true}},
			sc:      reader,
			outcome: OutcomeForbidden,
			rule:    RuleMethodRolesAllowed,
		},
		{
			name:    "class roles allowed matches",
			target:  &Target{Name: "x", ClassRule: ClassRule{RolesAllowed: []string{"admin"}}},
			sc:      admin,
			outcome: OutcomeAllow,
			rule:    RuleClassRolesAllowed,
		},
		{
			name:    "class roles allowed without match",
			target:  &Target{Name: "x", ClassRule: ClassRule{RolesAllowed: []string{"admin"}}},
			sc:      reader,
			outcome: OutcomeForbidden,
			rule:    RuleClassRolesAllowed,
		},
		{
			name:    "class roles allowed anonymous",
			target:  &Target{Name: "x", ClassRule: ClassRule{RolesAllowed: []string{"admin"}}},
			sc:      nil,
			outcome: OutcomeUnauthorized,
			rule:    RuleClassRolesAllowed,
		},
		{
			name:    "class roles allowed beats class permit all",
			target:  &Target{Name: "x", ClassRule: ClassRule{RolesAllowed: []string{"admin"}, PermitAll: true}},
			sc:      nil,
			outcome: OutcomeUnauthorized,
			rule:    RuleClassRolesAllowed,
		},
		{
			name:    "class permit all admits anonymous",
			target:  &Target{Name: "x", ClassRule: ClassRule{PermitAll: true}},
			sc:      nil,
			outcome: OutcomeAllow,
			rule:    RuleClassPermitAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Evaluate(tt.target, tt.sc)
			assert.Equal(t, tt.outcome, d.Outcome, d.String())
			assert.Equal(t, tt.rule, d.Rule)
			assert.NotEmpty(t, d.Reason)
			assert.Equal(t, tt.outcome == OutcomeAllow, d.Allowed())
		})
	}
}

func TestEvaluate_AdmissionRequiresRoleIntersection(t *testing.T) {
	t.Parallel()

	roles := []string{"a", "b", "c"}
	for _, scope := range [][]string{{}, {"a"}, {"x", "c"}, {"x", "y"}, {"a", "b", "c"}} {
		sc := newSecurityContext(t, "p", scope...)
		for _, target := range []*Target{
			{Name: "m", Method: MethodRule{RolesAllowed: roles}},
			{Name: "c", ClassRule: ClassRule{RolesAllowed: roles}},
		} {
			d := Evaluate(target, sc)
			assert.Equal(t, auth.NewScope(scope...).ContainsAny(roles...), d.Allowed(), "scope %v target %s", scope, target.Name)
		}
	}
}

func TestEvaluate_TypedNilIsAnonymous(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sc   auth.SecurityContext
	}{
		{name: "token context", sc: (*auth.TokenContext)(nil)},
		{name: "jwt context", sc: (*auth.JWTContext)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Decision
			require.NotPanics(t, func() { d = Evaluate(nil, tt.sc) })
			assert.Equal(t, OutcomeUnauthorized, d.Outcome)
			assert.Equal(t, RuleAuthenticated, d.Rule)
			assert.Empty(t, d.Principal)

			d = Evaluate(&Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"reader"}}}, tt.sc)
			assert.Equal(t, OutcomeUnauthorized, d.Outcome)
		})
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	t.Parallel()

	target := &Target{Name: "x", Method: MethodRule{RolesAllowed: []string{"reader"}}}
	sc := newSecurityContext(t, "alice", "reader")

	first := Evaluate(target, sc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(target, sc))
	}
}

func TestDecision_Err(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Decision{Outcome: OutcomeAllow}.Err())
	assert.ErrorIs(t, Decision{Outcome: OutcomeUnauthorized}.Err(), ErrUnauthenticated)

	err := Evaluate(
		&Target{Name: "DELETE /orders/{id}", Method: MethodRule{DenyAll: true}},
		newSecurityContext(t, "alice"),
	).Err()
	require.ErrorIs(t, err, ErrAccessDenied)

	var denied *AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "DELETE /orders/{id}", denied.Target)
	assert.Equal(t, "alice", denied.Principal)
	assert.Equal(t, RuleMethodDenyAll, denied.Rule)
	assert.Contains(t, err.Error(), "method_deny_all")
}

func TestOutcomeAndRule_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "allow", OutcomeAllow.String())
	assert.Equal(t, "unauthorized", OutcomeUnauthorized.String())
	assert.Equal(t, "forbidden", OutcomeForbidden.String())
	assert.Equal(t, "unknown", Outcome(42).String())

	assert.Equal(t, "class_permit_all", RuleClassPermitAll.String())
	assert.Equal(t, "authenticated", RuleAuthenticated.String())
	assert.Equal(t, "unknown", Rule(0).String())
}

func TestRule_IsDeclared(t *testing.T) {
	t.Parallel()

	assert.False(t, MethodRule{}.IsDeclared())
	assert.True(t, MethodRule{RolesAllowed: []string{}}.IsDeclared())
	assert.True(t, MethodRule{DenyAll: true}.IsDeclared())
	assert.False(t, ClassRule{}.IsDeclared())
	assert.True(t, ClassRule{PermitAll: true}.IsDeclared())
}
