// Package auth authenticates HTTP and gRPC requests from the Authorization
// header.
//
// A request moves through three steps. The header is read and split into a
// scheme label and a credential payload, the label is resolved against the
// registry of IANA authorization schemes, and the payload is handed to a
// Validator. A successful validation yields a SecurityContext that is
// attached to the request context for the handlers and the authorization
// layer downstream.
//
// Two SecurityContext variants are provided. TokenContext carries a
// principal and a scope. JWTContext additionally carries the registered JWT
// claims and a refresh counter used to decide refresh eligibility.
//
// # Usage
//
//	mux := auth.NewSchemeMux().
//	    Handle(auth.SchemeBearer, tokenValidator).
//	    Handle(auth.SchemeBasic, basicValidator)
//
//	authenticator, err := auth.NewAuthenticator(cfg,
//	    auth.WithValidator(mux),
//	    auth.WithAuthenticatorLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	handler := authenticator.HTTPMiddleware()(next)
//
// Failures are answered with a JSON body of the form {"error": "..."}. A 401
// carries a WWW-Authenticate challenge built from the configured schemes and
// realm. Validator errors that wrap none of the package sentinels are logged
// and reported to the client as a generic 401.
package auth
