// Package repositories implements relational persistence for submissions and the archive.
//
// The same SQL runs on SQLite (mattn/go-sqlite3) and PostgreSQL (pgx stdlib):
// placeholders are written as $1..$n and each is used once, in order.
//
// Key Implementations:
//   - [SubmissionRepository] : pending picks, unique per (member, period)
//   - [ArchiveRepository] : settled weekly picks, append-only
//
// Unique violations from either driver are reported as [shared.ErrConflict].
// Other write failures wrap [shared.ErrPersistence] and read failures wrap [shared.ErrFetch].
package repositories
