package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
)

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

type ReplaceGroupMembersRequest struct {
	Users []uuid.UUID `json:"users"`
}

type GroupResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func createGroupHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req CreateGroupRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		// Creating a group requires a global groups grant; there is no
		// group yet to scope the check to.
		if resp := requirePermission(ctx, d, initiator(ctx).User.ID, "groups", writeAbilities, nil); resp != nil {
			return resp
		}

		g, err := d.Permissions.CreateGroup(ctx, req.Name)
		if err != nil {
			return errorResponse(err)
		}
		return response.JSONWithStatus(GroupResponse{ID: g.ID, Name: g.Name}, http.StatusCreated)
	}
}

func deleteGroupHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		groupID, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		if resp := requireGroupPermission(ctx, d, initiator(ctx).User.ID, "groups", writeAbilities, groupID); resp != nil {
			return resp
		}

		if err := d.Permissions.DeleteGroup(ctx, groupID); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}

func replaceGroupMembersHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		groupID, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		var req ReplaceGroupMembersRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		if resp := requireGroupPermission(ctx, d, initiator(ctx).User.ID, "groups", writeAbilities, groupID); resp != nil {
			return resp
		}

		if err := d.Permissions.ReplaceGroupMembers(ctx, groupID, req.Users); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}
