package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type ResetConfirmHandler struct {
	ResetService *service.ResetService
}

// ServeHTTP godoc
//
//	@Summary		Confirm Password Reset
//	@Description	Consume an approved reset token, set the new password and revoke every active session. Tokens are single use; unapproved tokens are indistinguishable from unknown ones.
//	@Tags			Password Resets
//	@Accept			json
//	@Produce		json
//	@Param			request	body	identitysdk.ConfirmResetRequest	true	"Confirmation"
//	@Success		204		"password updated"
//	@Failure		400		{object}	identitysdk.ErrorResponse
//	@Failure		404		{object}	identitysdk.ErrorResponse
//	@Failure		410		{object}	identitysdk.ErrorResponse
//	@Router			/v1/password-resets/confirm [post]
func (h *ResetConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identitysdk.ConfirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if err := req.Validate(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: err.Error(),
		})
		return
	}

	if err := h.ResetService.Confirm(ctx, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrResetNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, identitysdk.ErrorResponse{
				Error:            "reset_not_found",
				ErrorDescription: "reset token is not recognised",
			})
		case errors.Is(err, service.ErrResetExpired):
			httpx.WriteJSON(w, http.StatusGone, identitysdk.ErrorResponse{
				Error:            "reset_expired",
				ErrorDescription: "reset token has expired",
			})
		case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrInvalidResetRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
				Error: "invalid_request",
			})
		default:
			httpx.WriteJSON(w, http.StatusInternalServerError, identitysdk.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
