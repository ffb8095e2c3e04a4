package permission

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Ability is a mode of access within a roll.
type Ability string

const (
	Read      Ability = "r"
	ReadWrite Ability = "rw"
)

// SubjectTable names the table a permission subject lives in.
type SubjectTable string

const (
	SubjectUsers  SubjectTable = "users"
	SubjectGroups SubjectTable = "groups"
)

// ResourceTable names the table an optional permission resource lives
// in. Empty means the grant is global for its roll.
type ResourceTable string

const (
	ResourceNone   ResourceTable = ""
	ResourceUsers  ResourceTable = "users"
	ResourceGroups ResourceTable = "groups"
)

// Roll is a named capability domain (not "role"): which abilities it
// supports and whether a grant may target a specific resource.
type Roll struct {
	Name          string
	Abilities     []Ability
	AllowResource bool
}

// Allows reports whether the ability is legal for this roll.
func (r Roll) Allows(a Ability) bool {
	return slices.Contains(r.Abilities, a)
}

// rolls is the process-wide immutable roll dictionary, built once at
// package init. Order matters only for listing.
var rolls = []Roll{
	{Name: "entries", Abilities: []Ability{Read, ReadWrite}},
	{Name: "users", Abilities: []Ability{Read, ReadWrite}, AllowResource: true},
	{Name: "users/entries", Abilities: []Ability{Read}},
	{Name: "users/entries/comments", Abilities: []Ability{Read, ReadWrite}},
	{Name: "groups", Abilities: []Ability{Read, ReadWrite}, AllowResource: true},
	{Name: "global/tags", Abilities: []Ability{Read, ReadWrite}},
	{Name: "global/custom_fields", Abilities: []Ability{Read, ReadWrite}},
}

var rollsByName = func() map[string]Roll {
	m := make(map[string]Roll, len(rolls))
	for _, r := range rolls {
		m[r.Name] = r
	}
	return m
}()

// Rolls lists the roll dictionary.
func Rolls() []Roll {
	return slices.Clone(rolls)
}

// LookupRoll resolves a roll by name.
func LookupRoll(name string) (Roll, bool) {
	r, ok := rollsByName[name]
	return r, ok
}

// Permission is one persisted grant row. ResourceID is set iff
// ResourceTable is not ResourceNone.
type Permission struct {
	ID            uuid.UUID
	SubjectTable  SubjectTable
	SubjectID     uuid.UUID
	Roll          string
	Ability       Ability
	ResourceTable ResourceTable
	ResourceID    *uuid.UUID
}

// Grant is one tuple in a replace request, before validation.
type Grant struct {
	Roll          string
	Ability       Ability
	ResourceTable ResourceTable
	ResourceID    *uuid.UUID
}

// Group is a named collection of users.
type Group struct {
	ID   uuid.UUID
	Name string
}

var (
	ErrGroupNotFound  = errors.New("permission: group not found")
	ErrGroupNameTaken = errors.New("permission: group name already taken")
	ErrUnknownSubject = errors.New("permission: unknown subject table")
)

// Validation reasons for replace requests. These are wire-stable.
const (
	ReasonUnknownRoll          = "unknown_roll"
	ReasonInvalidAbility       = "invalid_ability"
	ReasonResourceNotAllowed   = "resource_not_allowed"
	ReasonUnknownResourceTable = "unknown_resource_tables"
	ReasonResourceIDNotFound   = "resource_id_not_found"
	ReasonUserNotFound         = "user_not_found"
)

// TupleError pinpoints why one tuple of a replace request is invalid.
type TupleError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func (e TupleError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("tuple %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("tuple %d: %s (%s)", e.Index, e.Reason, e.Detail)
}

// ValidationError carries every invalid tuple of a rejected replace
// request; none of the request was applied.
type ValidationError struct {
	Tuples []TupleError `json:"tuples"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("permission: %d invalid tuple(s)", len(e.Tuples))
}
