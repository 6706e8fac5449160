// Package authz enforces role-based access rules on authenticated requests.
//
// Rules are declared per route and per class in configuration and compiled
// once into a Table keyed by route identity: the matched http.ServeMux
// pattern for HTTP and the full method name for gRPC. A route may declare
// DenyAll, RolesAllowed or PermitAll; its class may declare RolesAllowed or
// PermitAll. Evaluate applies them in a fixed precedence:
//
//  1. route DenyAll: forbidden
//  2. route RolesAllowed: allowed when the caller holds any listed role
//  3. route PermitAll: allowed
//  4. class RolesAllowed: as step 2
//  5. class PermitAll: allowed
//  6. otherwise: allowed for any authenticated caller
//
// A RolesAllowed declaration with a non-empty role list answers an anonymous
// caller with Unauthorized; a caller without a matching role gets Forbidden.
//
// The active Table lives in a Store and can be swapped at runtime when the
// configuration is reloaded.
package authz
