package http

import (
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type InvitationListHandler struct {
	InvitationService *service.InvitationService
}

// ServeHTTP godoc
//
//	@Summary		List Own Invitations
//	@Description	List the invitations issued by the authenticated user, newest first. Tokens are never included.
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{array}		identitysdk.InvitationResponse
//	@Failure		403	{object}	identitysdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations [get]
func (h *InvitationListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invitations, err := h.InvitationService.ListByInviter(ctx, actorFromContext(r))
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

	out := make([]identitysdk.InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, invitationResponse(inv, ""))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
