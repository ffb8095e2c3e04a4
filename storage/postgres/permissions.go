package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/integration/database/pg"
)

// PermissionStore implements permission.Store on PostgreSQL.
type PermissionStore struct {
	db *DB
}

// NewPermissionStore creates the permission store.
func NewPermissionStore(db *DB) *PermissionStore {
	return &PermissionStore{db: db}
}

var _ permission.Store = (*PermissionStore)(nil)

func (s *PermissionStore) GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.conn(ctx).Query(ctx,
		`SELECT group_id FROM group_users WHERE users_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ExistsGrant evaluates the four-way subject x resource union as a
// single EXISTS query.
func (s *PermissionStore) ExistsGrant(ctx context.Context, f permission.GrantFilter) (bool, error) {
	abilities := make([]string, len(f.Abilities))
	for i, a := range f.Abilities {
		abilities[i] = string(a)
	}
	groupSubjects := f.GroupSubjects
	if groupSubjects == nil {
		groupSubjects = []uuid.UUID{}
	}

	var exists bool
	var err error
	if !f.HasResource {
		const q = `
			SELECT EXISTS (
				SELECT 1 FROM permissions
				WHERE roll = $1
				  AND ability = ANY($2)
				  AND resource_table IS NULL
				  AND (
					(subject_table = 'users' AND subject_id = $3)
					OR (subject_table = 'groups' AND subject_id = ANY($4))
				  )
			)`
		err = s.db.conn(ctx).QueryRow(ctx, q,
			f.Roll, abilities, f.UserSubject, groupSubjects,
		).Scan(&exists)
	} else {
		resourceGroups := f.ResourceGroups
		if resourceGroups == nil {
			resourceGroups = []uuid.UUID{}
		}
		const q = `
			SELECT EXISTS (
				SELECT 1 FROM permissions
				WHERE roll = $1
				  AND ability = ANY($2)
				  AND (
					(subject_table = 'users' AND subject_id = $3)
					OR (subject_table = 'groups' AND subject_id = ANY($4))
				  )
				  AND (
					(resource_table = 'users' AND resource_id = $5)
					OR (resource_table = 'groups' AND resource_id = ANY($6))
				  )
			)`
		err = s.db.conn(ctx).QueryRow(ctx, q,
			f.Roll, abilities, f.UserSubject, groupSubjects, f.ResourceUser, resourceGroups,
		).Scan(&exists)
	}
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PermissionStore) FindBySubject(ctx context.Context, table permission.SubjectTable, subjectID uuid.UUID) ([]permission.Permission, error) {
	const q = `
		SELECT id, subject_table, subject_id, roll, ability, COALESCE(resource_table, ''), resource_id
		FROM permissions
		WHERE subject_table = $1 AND subject_id = $2
		ORDER BY roll, ability`
	rows, err := s.db.conn(ctx).Query(ctx, q, string(table), subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []permission.Permission
	for rows.Next() {
		var p permission.Permission
		if err := rows.Scan(&p.ID, &p.SubjectTable, &p.SubjectID, &p.Roll, &p.Ability, &p.ResourceTable, &p.ResourceID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert inserts the grant, or on the tuple-unique constraint returns
// the id of the row already holding that tuple. The no-op DO UPDATE
// exists so RETURNING yields the surviving row either way.
func (s *PermissionStore) Upsert(ctx context.Context, p *permission.Permission) (uuid.UUID, error) {
	const q = `
		INSERT INTO permissions (id, subject_table, subject_id, roll, ability, resource_table, resource_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT (subject_table, subject_id, roll, ability, resource_table, resource_id)
		DO UPDATE SET roll = EXCLUDED.roll
		RETURNING id`
	var id uuid.UUID
	err := s.db.conn(ctx).QueryRow(ctx, q,
		p.ID, string(p.SubjectTable), p.SubjectID, p.Roll, string(p.Ability),
		string(p.ResourceTable), p.ResourceID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *PermissionStore) DeleteBySubjectExcept(ctx context.Context, table permission.SubjectTable, subjectID uuid.UUID, keep []uuid.UUID) error {
	if keep == nil {
		keep = []uuid.UUID{}
	}
	_, err := s.db.conn(ctx).Exec(ctx,
		`DELETE FROM permissions
		 WHERE subject_table = $1 AND subject_id = $2 AND NOT (id = ANY($3))`,
		string(table), subjectID, keep)
	return err
}

func (s *PermissionStore) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *PermissionStore) GroupExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *PermissionStore) CreateGroup(ctx context.Context, g *permission.Group) error {
	_, err := s.db.conn(ctx).Exec(ctx,
		`INSERT INTO groups (id, name) VALUES ($1, $2)`, g.ID, g.Name)
	if pg.IsDuplicateKeyError(err) {
		return permission.ErrGroupNameTaken
	}
	return err
}

// DeleteGroup removes the group. Memberships cascade via foreign keys;
// permissions carry no foreign key on their polymorphic columns, so
// rows naming the group as subject or as resource are swept in the
// same transaction.
func (s *PermissionStore) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return s.db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.conn(ctx).Exec(ctx,
			`DELETE FROM permissions
			 WHERE (subject_table = 'groups' AND subject_id = $1)
			    OR (resource_table = 'groups' AND resource_id = $1)`, id); err != nil {
			return err
		}
		tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return permission.ErrGroupNotFound
		}
		return nil
	})
}

func (s *PermissionStore) ListGroups(ctx context.Context) ([]permission.Group, error) {
	rows, err := s.db.conn(ctx).Query(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []permission.Group
	for rows.Next() {
		var g permission.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PermissionStore) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.conn(ctx).Query(ctx,
		`SELECT users_id FROM group_users WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PermissionStore) SetGroupMembers(ctx context.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	return s.db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.conn(ctx).Exec(ctx,
			`DELETE FROM group_users WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		for _, userID := range userIDs {
			if _, err := s.db.conn(ctx).Exec(ctx,
				`INSERT INTO group_users (group_id, users_id) VALUES ($1, $2)`,
				groupID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}
