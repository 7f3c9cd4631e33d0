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

type InvitationAcceptHandler struct {
	InvitationService *service.InvitationService
}

// ServeHTTP godoc
//
//	@Summary		Accept Invitation
//	@Description	Redeem an invitation token and create the account. The email and role are fixed by the invitation. No authentication required; the token is the credential.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identitysdk.AcceptInvitationRequest	true	"Redemption request"
//	@Success		201		{object}	identitysdk.UserResponse
//	@Failure		400		{object}	identitysdk.ErrorResponse
//	@Failure		404		{object}	identitysdk.ErrorResponse
//	@Failure		409		{object}	identitysdk.ErrorResponse
//	@Failure		410		{object}	identitysdk.ErrorResponse
//	@Router			/v1/invitations/accept [post]
func (h *InvitationAcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identitysdk.AcceptInvitationRequest
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

	user, err := h.InvitationService.Redeem(ctx, req.Token, req.FirstName, req.LastName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, identitysdk.ErrorResponse{
				Error:            "invitation_not_found",
				ErrorDescription: "invitation token is not recognised",
			})
		case errors.Is(err, service.ErrInviteAlreadyAccepted):
			httpx.WriteJSON(w, http.StatusConflict, identitysdk.ErrorResponse{
				Error:            "invitation_accepted",
				ErrorDescription: "invitation has already been accepted",
			})
		case errors.Is(err, service.ErrInvitationExpired):
			httpx.WriteJSON(w, http.StatusGone, identitysdk.ErrorResponse{
				Error:            "invitation_expired",
				ErrorDescription: "invitation has expired",
			})
		case errors.Is(err, service.ErrDuplicateEmail):
			httpx.WriteJSON(w, http.StatusConflict, identitysdk.ErrorResponse{
				Error:            "email_taken",
				ErrorDescription: "an account with this email already exists",
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

	httpx.WriteJSON(w, http.StatusCreated, userResponse(user))
}

func userResponse(u domain.User) identitysdk.UserResponse {
	return identitysdk.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
