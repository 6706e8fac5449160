// Package middleware provides the HTTP middleware and gRPC interceptors
// that surround the authentication and authorization filters: request IDs,
// panic recovery and access logging.
package middleware
