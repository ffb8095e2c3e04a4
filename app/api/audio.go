package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/logger"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/storage/postgres"
)

type AudioResponse struct {
	ID          uuid.UUID `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedOn   time.Time `json:"created_on"`
}

// audioKey is the object-storage key for an attachment's payload.
func audioKey(id uuid.UUID) string {
	return fmt.Sprintf("audio/%s", id)
}

// canReadAudio reports whether the caller may see the attachment:
// owners need an entries grant, everyone else a users grant scoped to
// the owner (directly or through one of the owner's groups).
func canReadAudio(ctx *Context, d Deps, callerID uuid.UUID, a *postgres.Audio, write bool) handler.Response {
	abilities := readAbilities
	if write {
		abilities = writeAbilities
	}
	if a.UserID == callerID {
		return requirePermission(ctx, d, callerID, "entries", abilities, nil)
	}
	return requirePermission(ctx, d, callerID, "users", abilities, &a.UserID)
}

func uploadAudioHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		callerID := initiator(ctx).User.ID
		if resp := requirePermission(ctx, d, callerID, "entries", writeAbilities, nil); resp != nil {
			return resp
		}

		// The body-limit middleware caps this read.
		payload, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Failed to read body").WithError(err))
		}
		if len(payload) == 0 {
			return response.Error(response.ErrBadRequest.WithMessage("Empty body"))
		}

		contentType := ctx.Request().Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		id := uuid.New()
		audio := &postgres.Audio{
			ID:          id,
			UserID:      callerID,
			ObjectKey:   audioKey(id),
			ContentType: contentType,
			Size:        int64(len(payload)),
		}

		if err := d.Blobs.Upload(ctx, audio.ObjectKey, contentType, bytes.NewReader(payload)); err != nil {
			return response.Error(response.ErrInternalServerError.WithError(err))
		}
		if err := d.Audio.Create(ctx, audio); err != nil {
			// Roll back the orphaned object; the row is the source of truth.
			if derr := d.Blobs.Delete(ctx, audio.ObjectKey); derr != nil {
				d.Logger.ErrorContext(ctx, "failed to clean up audio object",
					logger.ID("audio_id", audio.ID), logger.Error(derr))
			}
			return response.Error(response.ErrInternalServerError.WithError(err))
		}

		return response.JSONWithStatus(AudioResponse{
			ID:          audio.ID,
			ContentType: audio.ContentType,
			Size:        audio.Size,
			CreatedOn:   audio.CreatedOn,
		}, http.StatusCreated)
	}
}

func downloadAudioHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		id, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		audio, err := d.Audio.Find(ctx, id)
		if err != nil {
			return errorResponse(err)
		}
		if resp := canReadAudio(ctx, d, initiator(ctx).User.ID, audio, false); resp != nil {
			return resp
		}

		obj, err := d.Blobs.Download(ctx, audio.ObjectKey)
		if err != nil {
			return response.Error(response.ErrInternalServerError.WithError(err))
		}

		return func(w http.ResponseWriter, r *http.Request) error {
			defer obj.Body.Close()
			w.Header().Set("Content-Type", audio.ContentType)
			w.Header().Set("Content-Length", strconv.FormatInt(audio.Size, 10))
			_, err := io.Copy(w, obj.Body)
			return err
		}
	}
}

func deleteAudioHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		id, err := pathID(ctx, "id")
		if err != nil {
			return response.Error(response.ErrBadRequest.WithMessage("Invalid id"))
		}

		audio, err := d.Audio.Find(ctx, id)
		if err != nil {
			return errorResponse(err)
		}
		if resp := canReadAudio(ctx, d, initiator(ctx).User.ID, audio, true); resp != nil {
			return resp
		}

		if err := d.Audio.Delete(ctx, id); err != nil {
			return errorResponse(err)
		}
		// Best effort: a stray object without a row is invisible to the API.
		if err := d.Blobs.Delete(ctx, audio.ObjectKey); err != nil {
			d.Logger.ErrorContext(ctx, "failed to delete audio object",
				logger.ID("audio_id", audio.ID), logger.Error(err))
		}
		return response.NoContent()
	}
}
