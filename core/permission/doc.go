// Package permission decides whether a user may exercise an ability on
// a roll, optionally against a specific resource, across a
// users-and-groups graph.
//
// A roll is a named capability domain ("entries", "users", ...); the
// roll dictionary is fixed at startup and declares which abilities each
// roll supports and whether grants may target a resource. A grant's
// subject is a user or a group; membership expands both the subject and
// the resource side, so access granted to a group reaches every member,
// and access granted "to a user through any group that user belongs
// to" also applies.
//
// HasPermission evaluates the four subject x resource combinations as
// one boolean union. Updates are idempotent replaces: the whole new set
// is validated, then upserted and pruned inside a single transaction;
// one invalid tuple rejects everything.
package permission
