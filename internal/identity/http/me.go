package http

import (
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type MeHandler struct {
	Store store.Store
}

// ServeHTTP godoc
//
//	@Summary		Current User Profile
//	@Description	Return the authenticated user's account. Any role may read its own profile.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	identitysdk.UserResponse
//	@Failure		401	{object}	identitysdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, identitysdk.ErrorResponse{
			Error: "unauthorized",
		})
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token subject no longer exists.
			httpx.WriteJSON(w, http.StatusUnauthorized, identitysdk.ErrorResponse{
				Error: "unauthorized",
			})
			return
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, identitysdk.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}
