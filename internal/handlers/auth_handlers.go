package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/response"
)

// Login authenticates staff and issues an access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := validateStruct(&req); err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Me returns the account behind the presented token.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	user, err := h.auth.GetUser(r.Context(), claims.Sub)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, user)
}
