package api

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/core/response"
)

type GrantPayload struct {
	Roll          string     `json:"roll" validate:"required"`
	Ability       string     `json:"ability" validate:"required,oneof=r rw"`
	ResourceTable string     `json:"resource_table" validate:"omitempty,oneof=users groups"`
	ResourceID    *uuid.UUID `json:"resource_id"`
}

type ReplacePermissionsRequest struct {
	Permissions []GrantPayload `json:"permissions" validate:"dive"`
}

type PermissionPayload struct {
	ID            uuid.UUID  `json:"id"`
	Roll          string     `json:"roll"`
	Ability       string     `json:"ability"`
	ResourceTable string     `json:"resource_table,omitempty"`
	ResourceID    *uuid.UUID `json:"resource_id,omitempty"`
}

type PermissionListResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
}

var (
	readAbilities  = []permission.Ability{permission.Read, permission.ReadWrite}
	writeAbilities = []permission.Ability{permission.ReadWrite}
)

// requireSubjectAdmin gates administration of a subject: a user's
// permissions need the users roll scoped to that user, a group's the
// groups roll scoped to that group.
func requireSubjectAdmin(ctx *Context, d Deps, table permission.SubjectTable, subjectID uuid.UUID, abilities []permission.Ability) handler.Response {
	callerID := initiator(ctx).User.ID
	if table == permission.SubjectGroups {
		return requireGroupPermission(ctx, d, callerID, "groups", abilities, subjectID)
	}
	return requirePermission(ctx, d, callerID, "users", abilities, &subjectID)
}

func listPermissionsHandler(d Deps, table permission.SubjectTable) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		subjectID, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		if resp := requireSubjectAdmin(ctx, d, table, subjectID, readAbilities); resp != nil {
			return resp
		}

		perms, err := d.Permissions.ListForSubject(ctx, table, subjectID)
		if err != nil {
			return errorResponse(err)
		}

		out := make([]PermissionPayload, 0, len(perms))
		for _, p := range perms {
			out = append(out, PermissionPayload{
				ID:            p.ID,
				Roll:          p.Roll,
				Ability:       string(p.Ability),
				ResourceTable: string(p.ResourceTable),
				ResourceID:    p.ResourceID,
			})
		}
		return response.JSON(PermissionListResponse{Permissions: out})
	}
}

func replacePermissionsHandler(d Deps, table permission.SubjectTable) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		subjectID, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		var req ReplacePermissionsRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		if resp := requireSubjectAdmin(ctx, d, table, subjectID, writeAbilities); resp != nil {
			return resp
		}

		grants := make([]permission.Grant, 0, len(req.Permissions))
		for _, g := range req.Permissions {
			grants = append(grants, permission.Grant{
				Roll:          g.Roll,
				Ability:       permission.Ability(g.Ability),
				ResourceTable: permission.ResourceTable(g.ResourceTable),
				ResourceID:    g.ResourceID,
			})
		}

		if err := d.Permissions.ReplaceForSubject(ctx, table, subjectID, grants); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}
