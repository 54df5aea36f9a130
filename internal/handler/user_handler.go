package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livechat/internal/app/db"
	"livechat/internal/app/storage"
	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
)

// HandleGetCurrentUser returns the account behind the session.
func HandleGetCurrentUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		current, err := deps.Store.FindUser(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": current,
		})
	}
}

// HandleFindUser looks a user up by username.
func HandleFindUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		if username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		found, err := deps.Store.FindUserByName(r.Context(), username)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": found.Summary(),
		})
	}
}

// HandleUpdateAvatar replaces the avatar of the current user with a resized copy of the
// uploaded image and releases the previous one.
func HandleUpdateAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		files, customErr := req.ReadFiles(r, "image", 1)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		asset, err := deps.Storage.UploadAvatar(r.Context(), files[0], storage.OwnerFolder(storage.FolderAvatars, identity.ID))
		if err != nil {
			respondUploadErr(w, r, err)
			return
		}

		previous, err := deps.Store.UpdateAvatar(r.Context(), identity.ID, asset.URL)
		if err != nil {
			releaseAssets(r, deps, asset.URL)
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		if previous != "" && previous != asset.URL {
			releaseAssets(r, deps, previous)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"avatar": asset.URL,
		})
	}
}

func respondUploadErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrUnsupportedImage) {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnsupportedImage))
		return
	}

	logx.Error(err, "Image upload failed")
	resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
}

// releaseAssets deletes assets that are no longer referenced. Failures are only logged.
func releaseAssets(r *http.Request, deps *AppDeps, refs ...string) {
	for _, ref := range refs {
		if err := deps.Storage.Release(r.Context(), ref); err != nil {
			logx.Error(err, "Failed to release asset", "asset", ref)
		}
	}
}
