/*
Package handler provides the HTTP handlers and routing setup for the LiveChat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/limiter"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/resp"
)

const (
	AuthRate     = 0.2
	AuthBurst    = 5
	ConnectRate  = 0.5
	ConnectBurst = 10
	UploadRate   = 1
	UploadBurst  = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
// The limiters' cleanup goroutines stop when ctx is cancelled.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AuthRate), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	uploadLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(UploadRate), UploadBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(r.Context()); err != nil {
			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		data := map[string]string{
			"status":  "ok",
			"service": "LiveChat Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/pow", func(p chi.Router) {
			p.Use(authLimiter.Middleware)
			p.Get("/challenge", HandlePowChallenge(deps))
			p.Post("/verify", HandlePowVerify(deps))
		})

		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/sign-up", HandleSignUp(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.With(jwt.RequireIdentity).Post("/logout", HandleLogout(deps))
		})

		api.Group(func(private chi.Router) {
			private.Use(jwt.RequireIdentity)

			private.Get("/user", HandleGetCurrentUser(deps))
			private.With(uploadLimiter.Middleware).Post("/user/avatar", HandleUpdateAvatar(deps))
			private.Get("/users/{username}", HandleFindUser(deps))

			private.Get("/chats/{peerId}/messages", HandleDirectHistory(deps))
			private.Get("/groups", HandleListGroups(deps))
			private.Get("/groups/{groupId}/messages", HandleGroupHistory(deps))

			private.Route("/uploads", func(up chi.Router) {
				up.Use(uploadLimiter.Middleware)
				up.Post("/images", HandleUploadImages(deps))
				up.Post("/group-image", HandleUploadGroupImage(deps))
			})
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, connectLimiter))

	return r
}
