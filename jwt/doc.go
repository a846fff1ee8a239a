// Package jwt manages access-token issuance and verification using a
// configured HS256 signing secret and strict validation semantics.
package jwt
