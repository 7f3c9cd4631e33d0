package http

import (
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type ResetApproveHandler struct {
	ResetService *service.ResetService
}

// ServeHTTP godoc
//
//	@Summary		Approve Password Reset
//	@Description	Approve a pending reset request and mail the reset link to the user. Admin only. Approval is single shot.
//	@Tags			Password Resets
//	@Produce		json
//	@Param			id	path	string	true	"Reset request id"
//	@Success		204	"approved"
//	@Failure		403	{object}	identitysdk.ErrorResponse
//	@Failure		404	{object}	identitysdk.ErrorResponse
//	@Failure		410	{object}	identitysdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/password-resets/{id}/approve [post]
func (h *ResetApproveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.ResetService.Approve(ctx, actorFromContext(r), r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, service.ErrNotAllowed):
			httpx.WriteJSON(w, http.StatusForbidden, identitysdk.ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "only admins can approve reset requests",
			})
		case errors.Is(err, service.ErrResetNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, identitysdk.ErrorResponse{
				Error:            "reset_not_found",
				ErrorDescription: "reset request not found or already approved",
			})
		case errors.Is(err, service.ErrResetExpired):
			httpx.WriteJSON(w, http.StatusGone, identitysdk.ErrorResponse{
				Error:            "reset_expired",
				ErrorDescription: "reset request has expired",
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
