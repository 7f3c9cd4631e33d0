package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type ResetListHandler struct {
	ResetService *service.ResetService
}

// ServeHTTP godoc
//
//	@Summary		List Password Reset Requests
//	@Description	List pending and approved reset requests with the owning user's email, newest first. Admin only. Reset tokens are never included.
//	@Tags			Password Resets
//	@Produce		json
//	@Success		200	{array}		identitysdk.ResetRequestResponse
//	@Failure		403	{object}	identitysdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/password-resets [get]
func (h *ResetListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.ResetService.List(ctx, actorFromContext(r))
	if err != nil {
		if errors.Is(err, service.ErrNotAllowed) {
			httpx.WriteJSON(w, http.StatusForbidden, identitysdk.ErrorResponse{
				Error: "forbidden",
			})
			return
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, identitysdk.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	out := make([]identitysdk.ResetRequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, identitysdk.ResetRequestResponse{
			ID:        req.ID,
			UserID:    req.UserID,
			UserEmail: req.UserEmail,
			Approved:  req.Approved,
			ExpiresAt: req.ExpiresAt.Format(time.RFC3339),
			CreatedAt: req.CreatedAt.Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
