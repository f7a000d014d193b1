// Package repolock provides the repository's advisory cross-process
// exclusive lock at .bones/lock. Every mutating operation (append, verify,
// compact, redact) holds this lock for its duration; readers that only
// need a consistent snapshot of the projection database do not need it.
package repolock
