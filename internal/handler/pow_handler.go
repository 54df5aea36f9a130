package handler

import (
	"net/http"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
)

// HandlePowChallenge issues a new proof-of-work challenge.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Pow.NewChallenge())
	}
}

type PowVerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowVerify trades a solved challenge for a single-use proof token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PowVerifyInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.Verify(input.Nonce, input.Counter)
		if err != nil {
			logx.Debug("PoW verification failed", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
		})
	}
}
