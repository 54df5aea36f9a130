/*
Package handler provides HTTP handler functions for user authentication and management.
*/
package handler

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"livechat/internal/app/db"
	"livechat/internal/app/user"
	"livechat/internal/pkg/auth/jwt"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
)

// PasswordHashCost is the bcrypt cost used for new accounts.
const PasswordHashCost = 10

type SignUpInput struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// HandleSignUp creates an account. The request must carry a proof token from the PoW gate.
func HandleSignUp(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		if !deps.Pow.ConsumeProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input SignUpInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		username, customErr := user.ValidateSignUp(input.Username, input.Password, input.PasswordConfirmation)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), PasswordHashCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		created, err := deps.Store.CreateUser(r.Context(), username, string(hashedPassword))
		if err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				logx.Warn("Sign-up conflict: username already exists", "username", username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
			return
		}

		logx.Info("User signed up", "user_id", created.ID)

		resp.RespondSuccess(w, r, map[string]any{
			"user": created,
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials, marks the user online and issues a session token both in
// the body and as an HttpOnly cookie.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Store.FindUserByName(r.Context(), input.Username)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				resp.RespondErr(w, r, err, errs.ErrPersistenceFailed)
				return
			}
			logx.Warn("Login: unknown username", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("Login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		now := time.Now()
		if err := deps.Store.UpdateUserPresence(r.Context(), account.ID, true, now); err != nil {
			logx.Error(err, "Login: failed to mark user online", "user_id", account.ID)
		}
		account.Online = true
		account.LastSeen = now

		token, err := jwt.GenerateToken(&jwt.Payload{ID: account.ID, Username: account.Username}, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			logx.Error(err, "Login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		http.SetCookie(w, sessionCookie(deps, token, now.Add(jwt.SessionExpiration)))

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  account,
		})
	}
}

// HandleLogout marks the user offline and clears the session cookie.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		if err := deps.Store.UpdateUserPresence(r.Context(), identity.ID, false, time.Now()); err != nil {
			logx.Error(err, "Logout: failed to mark user offline", "user_id", identity.ID)
		}

		http.SetCookie(w, sessionCookie(deps, "", time.Unix(0, 0)))

		resp.RespondSuccess(w, r, nil)
	}
}

func sessionCookie(deps *AppDeps, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     jwt.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !deps.Config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}
