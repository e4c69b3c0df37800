// Package password implements credential hashing and the strength policy.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy bcrypt hashes still verify. [Hasher.NeedsUpgrade] reports true for
// them and for Argon2id hashes produced with weaker parameters, so the caller
// can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other medvault package.
//   - Log plaintext passwords.
package password
