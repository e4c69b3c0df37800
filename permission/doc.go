// Package permission provides the static role layer of authorization: a
// registry of named permissions packed into a 64 bit mask and a role
// manager composing masks per role.
//
// The highest bit is reserved as root and implies every permission. The
// admin role holds it.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Make relationship decisions (ownership, assignment, sharing). Those
//     belong to package access.
package permission
