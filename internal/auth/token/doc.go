// Package token validates opaque bearer tokens against a token store.
//
// Tokens are never stored or looked up in clear text: every store keys its
// records by the hex SHA-256 digest of the token. Three stores are
// provided:
//   - MemoryStore: records declared in configuration
//   - RedisStore: JSON records in Redis under a key prefix
//   - VaultStore: records kept as HashiCorp Vault KV v2 secrets
//
// Remote stores can be wrapped in a BreakerStore so a failing backend is
// short-circuited instead of slowing every request down.
package token
