package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type InvitationCreateHandler struct {
	InvitationService *service.InvitationService
}

// ServeHTTP godoc
//
//	@Summary		Issue Invitation
//	@Description	Issue a single-use invitation for a new account with a fixed role. Admin and director only. The raw token is returned once and also mailed to the invitee.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identitysdk.InvitationRequest	true	"Invitation request"
//	@Success		201		{object}	identitysdk.InvitationResponse
//	@Failure		400		{object}	identitysdk.ErrorResponse
//	@Failure		403		{object}	identitysdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations [post]
func (h *InvitationCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identitysdk.InvitationRequest
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

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "unknown role",
		})
		return
	}

	inv, token, err := h.InvitationService.Issue(ctx, actorFromContext(r), req.Email, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAllowed):
			httpx.WriteJSON(w, http.StatusForbidden, identitysdk.ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "your role cannot issue invitations",
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

	httpx.WriteJSON(w, http.StatusCreated, invitationResponse(inv, token))
}

// invitationResponse maps the domain invitation to the wire form. The raw
// token is only attached on issuance.
func invitationResponse(inv domain.Invitation, token string) identitysdk.InvitationResponse {
	out := identitysdk.InvitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role.String(),
		InvitedBy: inv.InvitedBy,
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
		Accepted:  inv.Accepted,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		Token:     token,
	}
	if inv.AcceptedAt != nil {
		out.AcceptedAt = inv.AcceptedAt.Format(time.RFC3339)
	}
	return out
}
