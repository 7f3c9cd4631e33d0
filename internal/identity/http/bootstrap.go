package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP godoc
//
//	@Summary		Bootstrap First Admin
//	@Description	Create the initial admin account on an empty system. Requires the pre-configured bootstrap token and only works once.
//	@Tags			System
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identitysdk.BootstrapRequest	true	"Bootstrap request"
//	@Success		201		{object}	identitysdk.UserResponse
//	@Failure		400		{object}	identitysdk.ErrorResponse
//	@Failure		401		{object}	identitysdk.ErrorResponse
//	@Failure		409		{object}	identitysdk.ErrorResponse
//	@Router			/v1/bootstrap [post]
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identitysdk.BootstrapRequest
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

	admin, err := h.BootstrapService.Bootstrap(ctx, req.Token, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			httpx.WriteJSON(w, http.StatusConflict, identitysdk.ErrorResponse{
				Error:            "already_bootstrapped",
				ErrorDescription: "system already has users",
			})
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteJSON(w, http.StatusUnauthorized, identitysdk.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "invalid bootstrap token",
			})
		case errors.Is(err, service.ErrInvalidInviteRequest):
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

	httpx.WriteJSON(w, http.StatusCreated, userResponse(admin))
}
