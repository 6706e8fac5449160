package auth

import "github.com/vyrodovalexey/authgate/internal/audit"

// AuditSubject describes sc for the audit trail. A nil context, typed or
// not, is an anonymous caller and yields nil.
func AuditSubject(sc SecurityContext) *audit.Subject {
	if IsNil(sc) {
		return nil
	}
	return &audit.Subject{
		Principal: sc.PrincipalName(),
		Scheme:    sc.AuthenticationScheme().Label(),
		Roles:     sc.Roles(),
	}
}
