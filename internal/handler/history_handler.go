package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livechat/internal/app/db"
	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/resp"
)

// HandleDirectHistory returns the conversation between the current user and peerId, oldest
// first.
func HandleDirectHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		peerID := chi.URLParam(r, "peerId")

		peer, err := deps.Store.FindUser(r.Context(), peerID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		messages, err := deps.Store.ListMessagesBetween(r.Context(), identity.ID, peer.ID)
		if err != nil {
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user":     peer.Summary(),
			"messages": messages,
		})
	}
}

// HandleGroupHistory returns the messages of a group the current user belongs to. Groups the
// user is not part of are reported as missing.
func HandleGroupHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		g, err := deps.Store.FindGroup(r.Context(), chi.URLParam(r, "groupId"))
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrGroupNotFound))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		if !g.HasMember(identity.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrGroupNotFound))
			return
		}

		messages, err := deps.Store.ListMessagesForGroup(r.Context(), g.ID)
		if err != nil {
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"group":    g,
			"messages": messages,
		})
	}
}

// HandleListGroups returns the groups of the current user with their latest message.
func HandleListGroups(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		groups, err := deps.Store.ListGroupsForUser(r.Context(), identity.ID)
		if err != nil {
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"groups": groups,
		})
	}
}
