package http

import (
	"errors"
	"net/http"

	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/identitysdk"
)

type TokenHandler struct {
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Token Endpoint
//	@Description	Exchange credentials or a refresh token for an access token pair. Supports grant types "password" (username + password) and "refresh_token".
//	@Tags			Sessions
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string	true	"password or refresh_token"
//	@Param			username		formData	string	false	"Account email (password grant)"
//	@Param			password		formData	string	false	"Account password (password grant)"
//	@Param			refresh_token	formData	string	false	"Refresh token (refresh_token grant)"
//	@Success		200				{object}	identitysdk.TokenResponse
//	@Failure		400				{object}	identitysdk.ErrorResponse
//	@Failure		401				{object}	identitysdk.ErrorResponse
//	@Router			/v1/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "malformed form body",
		})
		return
	}

	switch r.FormValue("grant_type") {
	case "password":
		tokens, err := h.SessionService.PasswordGrant(ctx, r.FormValue("username"), r.FormValue("password"))
		if err != nil {
			writeTokenError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, identitysdk.TokenResponse{
			AccessToken:  tokens.AccessToken,
			TokenType:    "Bearer",
			ExpiresIn:    tokens.ExpiresIn,
			RefreshToken: tokens.RefreshToken,
		})

	case "refresh_token":
		tokens, err := h.SessionService.RefreshGrant(ctx, r.FormValue("refresh_token"))
		if err != nil {
			writeTokenError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, identitysdk.TokenResponse{
			AccessToken:  tokens.AccessToken,
			TokenType:    "Bearer",
			ExpiresIn:    tokens.ExpiresIn,
			RefreshToken: tokens.RefreshToken,
		})

	default:
		httpx.WriteJSON(w, http.StatusBadRequest, identitysdk.ErrorResponse{
			Error:            "unsupported_grant_type",
			ErrorDescription: "grant_type must be password or refresh_token",
		})
	}
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, identitysdk.ErrorResponse{
			Error:            "invalid_grant",
			ErrorDescription: "invalid email or password",
		})
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteJSON(w, http.StatusUnauthorized, identitysdk.ErrorResponse{
			Error:            "invalid_grant",
			ErrorDescription: "refresh token is invalid, revoked or expired",
		})
	default:
		httpx.WriteJSON(w, http.StatusInternalServerError, identitysdk.ErrorResponse{
			Error: "server_error",
		})
	}
}
