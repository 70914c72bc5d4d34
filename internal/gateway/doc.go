// Package gateway persists bands and users in a relational database.
//
// Gateway is the contract the command layer depends on; SQL implements it
// for Postgres (through pgx's database/sql driver) and for SQLite (through
// the pure Go modernc.org/sqlite driver). Both use the same statements with
// ? placeholders, rewritten to $n for Postgres.
//
// Every band row carries its owner's login. Update, Delete and DeleteMany
// are scoped to that owner and report ErrNotFound when the row does not
// exist or belongs to someone else.
//
// Passwords are stored as argon2id digests together with a per-user random
// salt; see HashPassword.
package gateway
