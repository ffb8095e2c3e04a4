package permission

import (
	"context"

	"github.com/google/uuid"
)

// GrantFilter is the flattened four-way union the store evaluates as a
// single existence query: the subject matches directly or through any
// of its groups, and — when a resource is attached — the resource
// matches the target user directly or through any of that user's groups.
type GrantFilter struct {
	Roll      string
	Abilities []Ability

	UserSubject   uuid.UUID
	GroupSubjects []uuid.UUID

	// HasResource selects between global grants (resource_table IS NULL)
	// and resource-scoped grants.
	HasResource    bool
	ResourceUser   uuid.UUID
	ResourceGroups []uuid.UUID
}

// Store persists permissions, groups, and memberships.
type Store interface {
	// GroupsOf lists the ids of every group the user belongs to.
	GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// ExistsGrant reports whether any permission row satisfies the filter.
	ExistsGrant(ctx context.Context, f GrantFilter) (bool, error)

	// FindBySubject lists a subject's permission rows.
	FindBySubject(ctx context.Context, table SubjectTable, subjectID uuid.UUID) ([]Permission, error)
	// Upsert inserts the permission or, on the unique-tuple constraint,
	// returns the existing row's id.
	Upsert(ctx context.Context, p *Permission) (uuid.UUID, error)
	// DeleteBySubjectExcept prunes every row of the subject whose id is
	// not in keep.
	DeleteBySubjectExcept(ctx context.Context, table SubjectTable, subjectID uuid.UUID, keep []uuid.UUID) error

	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	GroupExists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	ListGroups(ctx context.Context) ([]Group, error)
	// GroupMembers lists the user ids belonging to the group.
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	// SetGroupMembers replaces the group's member set.
	SetGroupMembers(ctx context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error
}

// TxRunner executes fn atomically.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine evaluates and updates permissions over the users-and-groups graph.
type Engine struct {
	store Store
	tx    TxRunner
}

// NewEngine creates the permission engine.
func NewEngine(store Store, tx TxRunner) *Engine {
	return &Engine{store: store, tx: tx}
}

// HasPermission is the core predicate: may the user exercise one of the
// abilities on the roll, optionally against a specific resource user?
// An empty ability list is always false. Store failures surface as
// errors, never as a false decision.
func (e *Engine) HasPermission(ctx context.Context, userID uuid.UUID, roll string, abilities []Ability, resource *uuid.UUID) (bool, error) {
	if len(abilities) == 0 {
		return false, nil
	}
	if _, ok := LookupRoll(roll); !ok {
		return false, nil
	}

	subjectGroups, err := e.store.GroupsOf(ctx, userID)
	if err != nil {
		return false, err
	}

	filter := GrantFilter{
		Roll:          roll,
		Abilities:     abilities,
		UserSubject:   userID,
		GroupSubjects: subjectGroups,
	}
	if resource != nil {
		resourceGroups, err := e.store.GroupsOf(ctx, *resource)
		if err != nil {
			return false, err
		}
		filter.HasResource = true
		filter.ResourceUser = *resource
		filter.ResourceGroups = resourceGroups
	}

	return e.store.ExistsGrant(ctx, filter)
}

// HasGroupPermission is the predicate for a group resource: it matches
// grants scoped to that group (resource_table=groups). Group resources
// have no membership expansion of their own.
func (e *Engine) HasGroupPermission(ctx context.Context, userID uuid.UUID, roll string, abilities []Ability, groupID uuid.UUID) (bool, error) {
	if len(abilities) == 0 {
		return false, nil
	}
	if _, ok := LookupRoll(roll); !ok {
		return false, nil
	}

	subjectGroups, err := e.store.GroupsOf(ctx, userID)
	if err != nil {
		return false, err
	}

	return e.store.ExistsGrant(ctx, GrantFilter{
		Roll:           roll,
		Abilities:      abilities,
		UserSubject:    userID,
		GroupSubjects:  subjectGroups,
		HasResource:    true,
		ResourceGroups: []uuid.UUID{groupID},
	})
}

// ListForSubject returns the subject's current grants.
func (e *Engine) ListForSubject(ctx context.Context, table SubjectTable, subjectID uuid.UUID) ([]Permission, error) {
	if err := e.checkSubject(ctx, table, subjectID); err != nil {
		return nil, err
	}
	return e.store.FindBySubject(ctx, table, subjectID)
}

// ReplaceForSubject idempotently replaces the subject's grant set:
// every tuple is validated up front, then each is upserted and any row
// not in the new set is pruned, all in one transaction. A single
// invalid tuple rejects the whole request with per-tuple diagnostics.
func (e *Engine) ReplaceForSubject(ctx context.Context, table SubjectTable, subjectID uuid.UUID, grants []Grant) error {
	if err := e.checkSubject(ctx, table, subjectID); err != nil {
		return err
	}
	if err := e.validateGrants(ctx, grants); err != nil {
		return err
	}

	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		keep := make([]uuid.UUID, 0, len(grants))
		for _, g := range grants {
			p := &Permission{
				ID:            uuid.New(),
				SubjectTable:  table,
				SubjectID:     subjectID,
				Roll:          g.Roll,
				Ability:       g.Ability,
				ResourceTable: g.ResourceTable,
				ResourceID:    g.ResourceID,
			}
			id, err := e.store.Upsert(ctx, p)
			if err != nil {
				return err
			}
			keep = append(keep, id)
		}
		return e.store.DeleteBySubjectExcept(ctx, table, subjectID, keep)
	})
}

func (e *Engine) validateGrants(ctx context.Context, grants []Grant) error {
	var invalid []TupleError
	add := func(i int, reason, detail string) {
		invalid = append(invalid, TupleError{Index: i, Reason: reason, Detail: detail})
	}

	for i, g := range grants {
		roll, ok := LookupRoll(g.Roll)
		if !ok {
			add(i, ReasonUnknownRoll, g.Roll)
			continue
		}
		if !roll.Allows(g.Ability) {
			add(i, ReasonInvalidAbility, string(g.Ability))
			continue
		}

		hasTable := g.ResourceTable != ResourceNone
		hasID := g.ResourceID != nil
		if !hasTable && !hasID {
			continue
		}
		if !roll.AllowResource {
			add(i, ReasonResourceNotAllowed, g.Roll)
			continue
		}
		if !hasTable || !hasID {
			add(i, ReasonUnknownResourceTable, string(g.ResourceTable))
			continue
		}

		switch g.ResourceTable {
		case ResourceUsers:
			ok, err := e.store.UserExists(ctx, *g.ResourceID)
			if err != nil {
				return err
			}
			if !ok {
				add(i, ReasonResourceIDNotFound, g.ResourceID.String())
			}
		case ResourceGroups:
			ok, err := e.store.GroupExists(ctx, *g.ResourceID)
			if err != nil {
				return err
			}
			if !ok {
				add(i, ReasonResourceIDNotFound, g.ResourceID.String())
			}
		default:
			add(i, ReasonUnknownResourceTable, string(g.ResourceTable))
		}
	}

	if len(invalid) > 0 {
		return &ValidationError{Tuples: invalid}
	}
	return nil
}

func (e *Engine) checkSubject(ctx context.Context, table SubjectTable, subjectID uuid.UUID) error {
	switch table {
	case SubjectUsers:
		ok, err := e.store.UserExists(ctx, subjectID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownSubject
		}
	case SubjectGroups:
		ok, err := e.store.GroupExists(ctx, subjectID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGroupNotFound
		}
	default:
		return ErrUnknownSubject
	}
	return nil
}

// CreateGroup creates a named group.
func (e *Engine) CreateGroup(ctx context.Context, name string) (*Group, error) {
	g := &Group{ID: uuid.New(), Name: name}
	if err := e.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGroup removes the group; memberships and subject-permissions
// cascade in storage.
func (e *Engine) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return e.store.DeleteGroup(ctx, id)
}

// ListGroups lists all groups.
func (e *Engine) ListGroups(ctx context.Context) ([]Group, error) {
	return e.store.ListGroups(ctx)
}

// GroupMembers lists the group's member user ids.
func (e *Engine) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	ok, err := e.store.GroupExists(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGroupNotFound
	}
	return e.store.GroupMembers(ctx, groupID)
}

// ReplaceGroupMembers replaces the group's member set. The whole list
// is rejected if any id is not a known user.
func (e *Engine) ReplaceGroupMembers(ctx context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	ok, err := e.store.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGroupNotFound
	}

	var invalid []TupleError
	for i, id := range userIDs {
		ok, err := e.store.UserExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			invalid = append(invalid, TupleError{Index: i, Reason: ReasonUserNotFound, Detail: id.String()})
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{Tuples: invalid}
	}

	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		return e.store.SetGroupMembers(ctx, groupID, userIDs)
	})
}
