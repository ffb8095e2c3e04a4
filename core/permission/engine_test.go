package permission_test

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/daybook/core/permission"
)

// memStore is an in-memory permission.Store mirroring the relational
// semantics: tuple-unique permissions, membership joins, cascades.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]bool
	groups      map[uuid.UUID]string
	members     map[uuid.UUID][]uuid.UUID // group -> users
	permissions map[uuid.UUID]permission.Permission
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]bool),
		groups:      make(map[uuid.UUID]string),
		members:     make(map[uuid.UUID][]uuid.UUID),
		permissions: make(map[uuid.UUID]permission.Permission),
	}
}

func (s *memStore) addUser() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = true
	return id
}

func (s *memStore) GroupsOf(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for groupID, users := range s.members {
		if slices.Contains(users, userID) {
			out = append(out, groupID)
		}
	}
	return out, nil
}

func sameTuple(a, b permission.Permission) bool {
	if a.SubjectTable != b.SubjectTable || a.SubjectID != b.SubjectID ||
		a.Roll != b.Roll || a.Ability != b.Ability || a.ResourceTable != b.ResourceTable {
		return false
	}
	if (a.ResourceID == nil) != (b.ResourceID == nil) {
		return false
	}
	return a.ResourceID == nil || *a.ResourceID == *b.ResourceID
}

func (s *memStore) ExistsGrant(_ context.Context, f permission.GrantFilter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.permissions {
		if p.Roll != f.Roll || !slices.Contains(f.Abilities, p.Ability) {
			continue
		}

		subjectMatch := (p.SubjectTable == permission.SubjectUsers && p.SubjectID == f.UserSubject) ||
			(p.SubjectTable == permission.SubjectGroups && slices.Contains(f.GroupSubjects, p.SubjectID))
		if !subjectMatch {
			continue
		}

		if !f.HasResource {
			if p.ResourceTable == permission.ResourceNone {
				return true, nil
			}
			continue
		}
		if p.ResourceID == nil {
			continue
		}
		if p.ResourceTable == permission.ResourceUsers && *p.ResourceID == f.ResourceUser {
			return true, nil
		}
		if p.ResourceTable == permission.ResourceGroups && slices.Contains(f.ResourceGroups, *p.ResourceID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) FindBySubject(_ context.Context, table permission.SubjectTable, subjectID uuid.UUID) ([]permission.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []permission.Permission
	for _, p := range s.permissions {
		if p.SubjectTable == table && p.SubjectID == subjectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) Upsert(_ context.Context, p *permission.Permission) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.permissions {
		if sameTuple(existing, *p) {
			return id, nil
		}
	}
	s.permissions[p.ID] = *p
	return p.ID, nil
}

func (s *memStore) DeleteBySubjectExcept(_ context.Context, table permission.SubjectTable, subjectID uuid.UUID, keep []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.permissions {
		if p.SubjectTable == table && p.SubjectID == subjectID && !slices.Contains(keep, id) {
			delete(s.permissions, id)
		}
	}
	return nil
}

func (s *memStore) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memStore) GroupExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[id]
	return ok, nil
}

func (s *memStore) CreateGroup(_ context.Context, g *permission.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.groups {
		if name == g.Name {
			return permission.ErrGroupNameTaken
		}
	}
	s.groups[g.ID] = g.Name
	return nil
}

func (s *memStore) DeleteGroup(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return permission.ErrGroupNotFound
	}
	delete(s.groups, id)
	delete(s.members, id)
	for pid, p := range s.permissions {
		subject := p.SubjectTable == permission.SubjectGroups && p.SubjectID == id
		resource := p.ResourceTable == permission.ResourceGroups && p.ResourceID != nil && *p.ResourceID == id
		if subject || resource {
			delete(s.permissions, pid)
		}
	}
	return nil
}

func (s *memStore) ListGroups(_ context.Context) ([]permission.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]permission.Group, 0, len(s.groups))
	for id, name := range s.groups {
		out = append(out, permission.Group{ID: id, Name: name})
	}
	return out, nil
}

func (s *memStore) GroupMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members[groupID]), nil
}

func (s *memStore) SetGroupMembers(_ context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[groupID] = slices.Clone(userIDs)
	return nil
}

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestEngine() (*permission.Engine, *memStore) {
	store := newMemStore()
	return permission.NewEngine(store, passTx{}), store
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestHasPermission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	both := []permission.Ability{permission.Read, permission.ReadWrite}

	t.Run("empty abilities always false", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()

		ok, err := engine.HasPermission(ctx, u, "entries", nil, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown roll is false", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()

		ok, err := engine.HasPermission(ctx, u, "nonsense", both, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("direct user grant", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
		}))

		ok, err := engine.HasPermission(ctx, u, "entries", []permission.Ability{permission.Read}, nil)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = engine.HasPermission(ctx, u, "entries", []permission.Ability{permission.ReadWrite}, nil)
		require.NoError(t, err)
		assert.False(t, ok, "rw not granted")
	})

	t.Run("grant via group membership", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		g, err := engine.CreateGroup(ctx, "writers")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceGroupMembers(ctx, g.ID, []uuid.UUID{u}))
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectGroups, g.ID, []permission.Grant{
			{Roll: "global/tags", Ability: permission.ReadWrite},
		}))

		ok, err := engine.HasPermission(ctx, u, "global/tags", both, nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("resource access transitive via group", func(t *testing.T) {
		t.Parallel()

		// Group G holds a grant on roll "users" targeting user U.
		// V, a member of G, gains access to U; leaving G revokes it.
		engine, store := newTestEngine()
		target := store.addUser()
		v := store.addUser()
		g, err := engine.CreateGroup(ctx, "carers")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceGroupMembers(ctx, g.ID, []uuid.UUID{v}))
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectGroups, g.ID, []permission.Grant{
			{Roll: "users", Ability: permission.Read, ResourceTable: permission.ResourceUsers, ResourceID: ptr(target)},
		}))

		ok, err := engine.HasPermission(ctx, v, "users", both, ptr(target))
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, engine.ReplaceGroupMembers(ctx, g.ID, nil))
		ok, err = engine.HasPermission(ctx, v, "users", both, ptr(target))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("resource reached through the resource user's group", func(t *testing.T) {
		t.Parallel()

		// Grant targets group G as the resource; U belongs to G, so
		// access to U flows through that membership.
		engine, store := newTestEngine()
		owner := store.addUser()
		target := store.addUser()
		g, err := engine.CreateGroup(ctx, "patients")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceGroupMembers(ctx, g.ID, []uuid.UUID{target}))
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, owner, []permission.Grant{
			{Roll: "users", Ability: permission.Read, ResourceTable: permission.ResourceGroups, ResourceID: ptr(g.ID)},
		}))

		ok, err := engine.HasPermission(ctx, owner, "users", both, ptr(target))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("global grant does not satisfy a resource check", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		other := store.addUser()
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "users", Ability: permission.Read},
		}))

		ok, err := engine.HasPermission(ctx, u, "users", both, ptr(other))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = engine.HasPermission(ctx, u, "users", both, nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("resource grant does not satisfy a global check", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		other := store.addUser()
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "users", Ability: permission.Read, ResourceTable: permission.ResourceUsers, ResourceID: ptr(other)},
		}))

		ok, err := engine.HasPermission(ctx, u, "users", both, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasGroupPermission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rw := []permission.Ability{permission.ReadWrite}

	t.Run("grant scoped to the group", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		g, err := engine.CreateGroup(ctx, "writers")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "groups", Ability: permission.ReadWrite, ResourceTable: permission.ResourceGroups, ResourceID: ptr(g.ID)},
		}))

		ok, err := engine.HasGroupPermission(ctx, u, "groups", rw, g.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		other, err := engine.CreateGroup(ctx, "readers")
		require.NoError(t, err)
		ok, err = engine.HasGroupPermission(ctx, u, "groups", rw, other.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("global grant does not cover a specific group", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		g, err := engine.CreateGroup(ctx, "writers")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "groups", Ability: permission.ReadWrite},
		}))

		ok, err := engine.HasGroupPermission(ctx, u, "groups", rw, g.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty abilities always false", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		ok, err := engine.HasGroupPermission(ctx, u, "groups", nil, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReplaceForSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("replace prunes removed grants", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()

		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
			{Roll: "entries", Ability: permission.ReadWrite},
		}))
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
		}))

		perms, err := engine.ListForSubject(ctx, permission.SubjectUsers, u)
		require.NoError(t, err)
		require.Len(t, perms, 1)
		assert.Equal(t, permission.Read, perms[0].Ability)
	})

	t.Run("idempotent by content", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		grants := []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
			{Roll: "global/tags", Ability: permission.ReadWrite},
		}

		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, grants))
		first, err := engine.ListForSubject(ctx, permission.SubjectUsers, u)
		require.NoError(t, err)

		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, grants))
		second, err := engine.ListForSubject(ctx, permission.SubjectUsers, u)
		require.NoError(t, err)

		assert.ElementsMatch(t, first, second)
	})

	t.Run("invalid tuple rejects the whole batch", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
		}))

		err := engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "global/tags", Ability: permission.Read},
			{Roll: "global/tags", Ability: permission.ReadWrite},
			{Roll: "bogus", Ability: permission.Read},
		})
		var verr *permission.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Tuples, 1)
		assert.Equal(t, 2, verr.Tuples[0].Index)
		assert.Equal(t, permission.ReasonUnknownRoll, verr.Tuples[0].Reason)

		// Pre-existing set is untouched.
		perms, err := engine.ListForSubject(ctx, permission.SubjectUsers, u)
		require.NoError(t, err)
		require.Len(t, perms, 1)
		assert.Equal(t, "entries", perms[0].Roll)
	})

	t.Run("validation reasons", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		missing := uuid.New()

		cases := []struct {
			name   string
			grant  permission.Grant
			reason string
		}{
			{
				"unknown roll",
				permission.Grant{Roll: "nope", Ability: permission.Read},
				permission.ReasonUnknownRoll,
			},
			{
				"illegal ability for roll",
				permission.Grant{Roll: "users/entries", Ability: permission.ReadWrite},
				permission.ReasonInvalidAbility,
			},
			{
				"resource on resourceless roll",
				permission.Grant{Roll: "entries", Ability: permission.Read, ResourceTable: permission.ResourceUsers, ResourceID: ptr(u)},
				permission.ReasonResourceNotAllowed,
			},
			{
				"unknown resource table",
				permission.Grant{Roll: "users", Ability: permission.Read, ResourceTable: "comments", ResourceID: ptr(u)},
				permission.ReasonUnknownResourceTable,
			},
			{
				"resource table without id",
				permission.Grant{Roll: "users", Ability: permission.Read, ResourceTable: permission.ResourceUsers},
				permission.ReasonUnknownResourceTable,
			},
			{
				"missing resource id",
				permission.Grant{Roll: "users", Ability: permission.Read, ResourceTable: permission.ResourceUsers, ResourceID: ptr(missing)},
				permission.ReasonResourceIDNotFound,
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{tc.grant})
				var verr *permission.ValidationError
				require.ErrorAs(t, err, &verr)
				require.Len(t, verr.Tuples, 1)
				assert.Equal(t, tc.reason, verr.Tuples[0].Reason)
			})
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		err := engine.ReplaceForSubject(ctx, permission.SubjectUsers, uuid.New(), nil)
		assert.ErrorIs(t, err, permission.ErrUnknownSubject)

		err = engine.ReplaceForSubject(ctx, "comments", uuid.New(), nil)
		assert.ErrorIs(t, err, permission.ErrUnknownSubject)
	})
}

func TestGroups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create list delete", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		g, err := engine.CreateGroup(ctx, "editors")
		require.NoError(t, err)

		groups, err := engine.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "editors", groups[0].Name)

		require.NoError(t, engine.DeleteGroup(ctx, g.ID))
		groups, err = engine.ListGroups(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("delete sweeps grants naming the group", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		g, err := engine.CreateGroup(ctx, "editors")
		require.NoError(t, err)

		// The group holds a grant and a user holds a grant scoped to it.
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectGroups, g.ID, []permission.Grant{
			{Roll: "entries", Ability: permission.Read},
		}))
		require.NoError(t, engine.ReplaceForSubject(ctx, permission.SubjectUsers, u, []permission.Grant{
			{Roll: "groups", Ability: permission.ReadWrite, ResourceTable: permission.ResourceGroups, ResourceID: ptr(g.ID)},
		}))

		require.NoError(t, engine.DeleteGroup(ctx, g.ID))

		orphans, err := store.FindBySubject(ctx, permission.SubjectGroups, g.ID)
		require.NoError(t, err)
		assert.Empty(t, orphans)

		remaining, err := engine.ListForSubject(ctx, permission.SubjectUsers, u)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		_, err := engine.CreateGroup(ctx, "editors")
		require.NoError(t, err)
		_, err = engine.CreateGroup(ctx, "editors")
		assert.ErrorIs(t, err, permission.ErrGroupNameTaken)
	})

	t.Run("replace members rejects unknown users", func(t *testing.T) {
		t.Parallel()

		engine, store := newTestEngine()
		u := store.addUser()
		g, err := engine.CreateGroup(ctx, "editors")
		require.NoError(t, err)
		require.NoError(t, engine.ReplaceGroupMembers(ctx, g.ID, []uuid.UUID{u}))

		err = engine.ReplaceGroupMembers(ctx, g.ID, []uuid.UUID{u, uuid.New()})
		var verr *permission.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Tuples, 1)
		assert.Equal(t, 1, verr.Tuples[0].Index)
		assert.Equal(t, permission.ReasonUserNotFound, verr.Tuples[0].Reason)

		// Membership unchanged after the rejected update.
		members, err := engine.GroupMembers(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{u}, members)
	})

	t.Run("members of unknown group", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine()
		_, err := engine.GroupMembers(ctx, uuid.New())
		assert.ErrorIs(t, err, permission.ErrGroupNotFound)
	})
}

func TestRollDictionary(t *testing.T) {
	t.Parallel()

	expected := map[string]struct {
		abilities     []permission.Ability
		allowResource bool
	}{
		"entries":                {[]permission.Ability{permission.Read, permission.ReadWrite}, false},
		"users":                  {[]permission.Ability{permission.Read, permission.ReadWrite}, true},
		"users/entries":          {[]permission.Ability{permission.Read}, false},
		"users/entries/comments": {[]permission.Ability{permission.Read, permission.ReadWrite}, false},
		"groups":                 {[]permission.Ability{permission.Read, permission.ReadWrite}, true},
		"global/tags":            {[]permission.Ability{permission.Read, permission.ReadWrite}, false},
		"global/custom_fields":   {[]permission.Ability{permission.Read, permission.ReadWrite}, false},
	}

	all := permission.Rolls()
	require.Len(t, all, len(expected))

	for name, want := range expected {
		roll, ok := permission.LookupRoll(name)
		require.True(t, ok, "roll %s", name)
		assert.Equal(t, want.abilities, roll.Abilities, "roll %s", name)
		assert.Equal(t, want.allowResource, roll.AllowResource, "roll %s", name)
	}

	_, ok := permission.LookupRoll("admin")
	assert.False(t, ok)
}
