package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type ResetRequestHandler struct {
	ResetService *service.ResetService
}

// ServeHTTP godoc
//
//	@Summary		Request Password Reset
//	@Description	Record a password reset request and alert every admin. No reset link is issued to the user until an admin approves.
//	@Tags			Password Resets
//	@Accept			json
//	@Produce		json
//	@Param			request	body	identitysdk.ResetRequestCreate	true	"Reset request"
//	@Success		202		"accepted"
//	@Failure		400		{object}	identitysdk.ErrorResponse
//	@Failure		404		{object}	identitysdk.ErrorResponse
//	@Router			/v1/password-resets [post]
func (h *ResetRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identitysdk.ResetRequestCreate
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

	if err := h.ResetService.Request(ctx, req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, identitysdk.ErrorResponse{
				Error:            "user_not_found",
				ErrorDescription: "no account for that email",
			})
		case errors.Is(err, service.ErrInvalidResetRequest):
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
	w.WriteHeader(http.StatusAccepted)
}
