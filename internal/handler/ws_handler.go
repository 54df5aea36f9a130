/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which rate limits the handshake, authenticates the session
before upgrading, and hands the connection to the chat hub.
*/
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"livechat/internal/app/chat"
	"livechat/internal/app/db"
	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/limiter"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Unauthenticated handshakes are refused with 401 before the upgrade.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		tokenString := jwt.TokenFromRequest(r)
		if tokenString == "" {
			logx.Info("WebSocket connection rejected: missing session")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Info("WebSocket connection rejected: invalid session", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		account, err := deps.Store.FindUser(r.Context(), payload.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				logx.Warn("WebSocket connection rejected: session user no longer exists", "user_id", payload.ID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		// The connection outlives the handshake request.
		ctx := context.WithoutCancel(r.Context())

		client := chat.NewClient(deps.Hub, conn, account.ID, time.Unix(payload.ExpiresAt, 0))
		deps.Hub.Connect(ctx, client)

		logx.FromContext(r.Context()).Info().
			Str("conn_id", client.ID()).
			Str("user_id", account.ID).
			Msg("WebSocket connection established")

		go client.WritePump()

		client.ReadPump(ctx)
	}
}
