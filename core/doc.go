// Package core holds the write path of the sync engine: payload checksums,
// identity lookup, the idempotent upsert engine, source write-back, plus the
// configuration and error taxonomy shared by the outer packages. Core depends
// on the source and target boundaries, never on concrete orchestration.
package core
