package handler

import (
	"net/http"

	"livechat/internal/app/message"
	"livechat/internal/app/storage"
	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
)

// HandleUploadImages stores up to message.MaxImages images sent under the "images" field and
// returns them in the shape send events expect. Either every image is stored or none is.
func HandleUploadImages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		files, customErr := req.ReadFiles(r, "images", message.MaxImages)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		images := make([]message.Image, 0, len(files))
		for _, data := range files {
			asset, err := deps.Storage.Upload(r.Context(), data, storage.OwnerFolder(storage.FolderMessages, identity.ID))
			if err != nil {
				uploaded := make([]string, 0, len(images))
				for _, img := range images {
					uploaded = append(uploaded, img.URL)
				}
				releaseAssets(r, deps, uploaded...)

				respondUploadErr(w, r, err)
				return
			}

			images = append(images, message.Image{Width: asset.Width, Height: asset.Height, URL: asset.URL})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"images": images,
		})
	}
}

// HandleUploadGroupImage stores a resized group image and returns its URL for use in
// create-group-chat and edit-group-chat.
func HandleUploadGroupImage(deps *AppDeps) http.HandlerFunc {
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

		asset, err := deps.Storage.UploadAvatar(r.Context(), files[0], storage.OwnerFolder(storage.FolderGroups, identity.ID))
		if err != nil {
			respondUploadErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"image": asset.URL,
		})
	}
}
