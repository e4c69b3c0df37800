// Package jwt issues and verifies the stateless session tokens carried in
// the Authorization header or the token cookie. Tokens embed the identity
// id and its token version; callers compare the version against the stored
// identity to honor revocation.
package jwt
