// Package basic validates HTTP Basic credentials against bcrypt password
// hashes. The validator has the label shape: it receives the scheme label
// and the already decoded "user:password" payload.
package basic
